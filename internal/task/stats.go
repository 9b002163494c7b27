package task

// JobStats 聚合了作业状态的统计信息，常用于仪表盘或健康检查。
type JobStats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Running         int   `json:"running"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	OldestUpdatedAt int64 `json:"oldest_updated_at,omitempty"`
	NewestUpdatedAt int64 `json:"newest_updated_at,omitempty"`
}

func (s *JobStats) add(status Status, count int, oldest, newest int64) {
	if count <= 0 {
		return
	}
	s.Total += count
	switch status {
	case StatusPending:
		s.Pending += count
	case StatusRunning:
		s.Running += count
	case StatusSucceeded:
		s.Succeeded += count
	case StatusFailed:
		s.Failed += count
	}
	if newest > s.NewestUpdatedAt {
		s.NewestUpdatedAt = newest
	}
	if s.OldestUpdatedAt == 0 || (oldest != 0 && oldest < s.OldestUpdatedAt) {
		s.OldestUpdatedAt = oldest
	}
}
