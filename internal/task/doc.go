// Package task 实现工具调用的异步作业：作业状态存储（内存、MySQL、SQLite）、
// 队列（内存、Redis、RabbitMQ）以及按 worker 数量并发执行的处理器。
package task
