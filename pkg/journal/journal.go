package journal

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileModeReadOnly rw-r--r--，一般資料檔
const FileModeReadOnly fs.FileMode = 0644

// Journal 是一個 append-only 的 JSON lines 檔案
// 每筆寫入後立刻 fsync，重啟時可用 Replay 依序重放
type Journal struct {
	file *os.File
	mu   sync.Mutex
}

// Open 開啟或建立 journal 檔案
// O_APPEND 讓每次寫入自動跳到檔尾
func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// Append 寫入一筆資料並刷入硬碟
func (j *Journal) Append(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewEncoder(j.file).Encode(v); err != nil {
		return err
	}
	return j.file.Sync()
}

// Replay 從頭依序讀出所有資料，逐筆交給 callback
// callback 收到的是原始 JSON，避免一次載入全部內容
func (j *Journal) Replay(callback func(raw []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(j.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}

// Close 關閉檔案
func (j *Journal) Close() error {
	return j.file.Close()
}
