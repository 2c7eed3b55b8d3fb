package queue

import "errors"

// ErrQueueFull indicates Push was rejected because the queue is at
// capacity under a drop-newest policy (NewestFirst == false).
var ErrQueueFull = errors.New("queue: full")
