package redis

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "itemcast:"

func (s *Store) taskKey(id string) string { return s.prefix + "task:" + id }

// queueKey is the Sorted Set of runnable task IDs in a queue.
func (s *Store) queueKey(name string) string { return s.prefix + "queue:" + name }

// queuesKey is the Set of queue names that ever received a task.
func (s *Store) queuesKey() string { return s.prefix + "queues" }

// taskIDsKey is the Set of all task IDs, for listing and counting.
func (s *Store) taskIDsKey() string { return s.prefix + "task_ids" }

func (s *Store) dlqKey(id string) string { return s.prefix + "dlq:" + id }

// dlqIDsKey is a Sorted Set of entry IDs scored by FailedAt.
func (s *Store) dlqIDsKey() string { return s.prefix + "dlq_ids" }
