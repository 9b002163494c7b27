package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// memoryJournalCap 限制内存中保留的调用记录数量。
const memoryJournalCap = 512

// CallRecord 表示一次工具调用的落库结构。
type CallRecord struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// Journal 抽象调用记录的持久化接口。
type Journal interface {
	Record(ctx context.Context, record CallRecord) error
	ListLatest(ctx context.Context, limit int) ([]CallRecord, error)
	Close() error
}

// MemoryJournal 在内存中保留最近的调用记录，并可追加写入本地 JSON 行文件。
type MemoryJournal struct {
	mu       sync.RWMutex
	dataFile string
	records  []CallRecord
}

// NewMemoryJournal 创建内存日志。dataDir 为空时不落盘。
func NewMemoryJournal(dataDir string) (*MemoryJournal, error) {
	j := &MemoryJournal{}
	if dataDir == "" {
		return j, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建数据目录失败")
	}
	j.dataFile = filepath.Join(dataDir, "calls.log")
	if err := j.loadFromDisk(); err != nil {
		return nil, err
	}
	return j, nil
}

// Record 以追加写的方式记录调用结果。
func (m *MemoryJournal) Record(_ context.Context, record CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dataFile != "" {
		if err := m.appendToDisk(record); err != nil {
			return err
		}
	}

	m.records = append([]CallRecord{record}, m.records...)
	if len(m.records) > memoryJournalCap {
		m.records = m.records[:memoryJournalCap]
	}
	return nil
}

// ListLatest 返回最近的调用记录，按时间倒序排列。
func (m *MemoryJournal) ListLatest(_ context.Context, limit int) ([]CallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}

	results := make([]CallRecord, limit)
	copy(results, m.records[:limit])
	return results, nil
}

// Close 对内存日志无操作。
func (m *MemoryJournal) Close() error { return nil }

func (m *MemoryJournal) appendToDisk(record CallRecord) error {
	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "打开调用日志失败")
	}
	defer file.Close()

	encoded, err := json.Marshal(record)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化调用记录失败")
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入调用日志失败")
	}
	return nil
}

func (m *MemoryJournal) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取调用日志失败")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var restored []CallRecord
	for scanner.Scan() {
		var record CallRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		restored = append([]CallRecord{record}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析调用日志失败")
	}

	if len(restored) > memoryJournalCap {
		restored = restored[:memoryJournalCap]
	}
	m.records = restored
	return nil
}

var _ Journal = (*MemoryJournal)(nil)
