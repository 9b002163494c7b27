package tools

import (
	"context"
	"time"

	"github.com/jaycoolh/hedera-agent-kit/internal/consensus"
	"github.com/jaycoolh/hedera-agent-kit/internal/mirror"
)

// TopicService is the consensus surface the topic tools call.
type TopicService interface {
	CreateTopic(ctx context.Context, memo string) (consensus.Topic, error)
	UpdateTopic(ctx context.Context, topicID, memo string) error
	DeleteTopic(ctx context.Context, topicID string) error
	SubmitMessage(ctx context.Context, topicID, message string) error
	QueryMessages(ctx context.Context, topicID string, wait time.Duration, limit int) ([]mirror.Message, error)
}

const (
	NameCreateTopic   = "hedera_create_topic"
	NameUpdateTopic   = "hedera_update_topic"
	NameDeleteTopic   = "hedera_delete_topic"
	NameSubmitMessage = "hedera_submit_message"
	NameQueryTopic    = "hedera_query_topic"
)

type createTopicInput struct {
	TopicMemo string `json:"topicMemo,omitempty" jsonschema:"describes the purpose of the topic"`
}

type createTopicOutput struct {
	Status  string `json:"status"`
	TopicID string `json:"topicId"`
	Memo    string `json:"memo"`
}

type updateTopicInput struct {
	TopicID   string `json:"topicId" jsonschema:"topic to update e.g. 0.0.123456"`
	TopicMemo string `json:"topicMemo" jsonschema:"new memo of the topic"`
}

type updateTopicOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TopicID string `json:"topicId"`
	NewMemo string `json:"newMemo"`
}

type deleteTopicInput struct {
	TopicID string `json:"topicId" jsonschema:"topic to delete e.g. 0.0.123456"`
}

type submitMessageInput struct {
	TopicID string `json:"topicId" jsonschema:"topic to publish to e.g. 0.0.123456"`
	Message string `json:"message" jsonschema:"text to submit"`
}

type topicMessageOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TopicID string `json:"topicId"`
}

type queryTopicInput struct {
	TopicID  string `json:"topicId" jsonschema:"topic to read e.g. 0.0.123456"`
	Duration int64  `json:"duration,omitempty" jsonschema:"milliseconds to wait for the mirror node to index recent messages, default 5000"`
	Limit    int    `json:"limit,omitempty" jsonschema:"page size requested from the mirror node, default 10"`
}

type queryTopicOutput struct {
	Status   string           `json:"status"`
	TopicID  string           `json:"topicId"`
	Messages []mirror.Message `json:"messages"`
}

func topicDefinitions(svc TopicService) ([]*Definition, error) {
	builders := []func() (*Definition, error){
		func() (*Definition, error) {
			return define(NameCreateTopic, `Create a consensus topic on Hedera.
Inputs (a JSON string):
  { "topicMemo": string (optional) }
The new topic lets the agent publish messages for on-chain communication. The
'topicMemo' describes the purpose of the topic.
Example: { "topicMemo": "Discussion on Hedera Consensus Service" }`,
				func(ctx context.Context, in createTopicInput) (createTopicOutput, error) {
					topic, err := svc.CreateTopic(ctx, in.TopicMemo)
					if err != nil {
						return createTopicOutput{}, err
					}
					return createTopicOutput{Status: StatusSuccess, TopicID: topic.ID.String(), Memo: topic.Memo}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameUpdateTopic, `Update the memo (description) of an existing Hedera consensus topic.
Inputs (a JSON string):
  { "topicId": string, "topicMemo": string }`,
				func(ctx context.Context, in updateTopicInput) (updateTopicOutput, error) {
					if err := svc.UpdateTopic(ctx, in.TopicID, in.TopicMemo); err != nil {
						return updateTopicOutput{}, err
					}
					return updateTopicOutput{
						Status:  StatusSuccess,
						Message: "Topic memo updated",
						TopicID: in.TopicID,
						NewMemo: in.TopicMemo,
					}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameDeleteTopic, `Delete an existing Hedera consensus topic.
Inputs (a JSON string):
  { "topicId": string }
Deleting a topic is irreversible.`,
				func(ctx context.Context, in deleteTopicInput) (topicMessageOutput, error) {
					if err := svc.DeleteTopic(ctx, in.TopicID); err != nil {
						return topicMessageOutput{}, err
					}
					return topicMessageOutput{Status: StatusSuccess, Message: "Topic deleted", TopicID: in.TopicID}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameSubmitMessage, `Submit a message to a Hedera consensus topic.
Inputs (a JSON string):
  { "topicId": string, "message": string }`,
				func(ctx context.Context, in submitMessageInput) (topicMessageOutput, error) {
					if err := svc.SubmitMessage(ctx, in.TopicID, in.Message); err != nil {
						return topicMessageOutput{}, err
					}
					return topicMessageOutput{Status: StatusSuccess, Message: "Message submitted to topic", TopicID: in.TopicID}, nil
				})
		},
		func() (*Definition, error) {
			return define(NameQueryTopic, `Query messages from a Hedera consensus topic.
Inputs (a JSON string):
  { "topicId": string, "duration": number (optional), "limit": number (optional) }
Waits 'duration' milliseconds for indexing, then returns every message of the topic
fetched 'limit' per page.`,
				func(ctx context.Context, in queryTopicInput) (queryTopicOutput, error) {
					wait := time.Duration(in.Duration) * time.Millisecond
					messages, err := svc.QueryMessages(ctx, in.TopicID, wait, in.Limit)
					if err != nil {
						return queryTopicOutput{}, err
					}
					if messages == nil {
						messages = []mirror.Message{}
					}
					return queryTopicOutput{Status: StatusSuccess, TopicID: in.TopicID, Messages: messages}, nil
				})
		},
	}
	return build(builders)
}

func build(builders []func() (*Definition, error)) ([]*Definition, error) {
	defs := make([]*Definition, 0, len(builders))
	for _, b := range builders {
		def, err := b()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
