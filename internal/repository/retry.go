package repository

import (
	"strings"
	"time"
)

const (
	storeRetryAttempts = 3
	storeRetryBackoff  = 20 * time.Millisecond
)

// isRetryableStoreError 判断是否为可重试的瞬时存储错误（锁冲突、序列化失败）。
func isRetryableStoreError(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database table is locked") ||
		strings.Contains(message, "could not serialize access") ||
		strings.Contains(message, "deadlock detected")
}

// withStoreRetry 对瞬时存储错误做有限次重试，重试耗尽后返回原始错误。
func withStoreRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryableStoreError(err) {
			return err
		}
		time.Sleep(storeRetryBackoff * time.Duration(attempt+1))
	}
	return err
}
