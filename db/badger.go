package db

import (
	"os"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadger 打开嵌入式 KV 存储，path 为空时使用内存模式
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return badger.Open(opts)
}
