// Package redis implements store.Store on Redis so worker processes on
// different hosts can drain the same queue.
//
// Tasks and dead letter entries are Hashes. Each queue is a Sorted Set of
// runnable task IDs scored by RunAt in milliseconds. A Lua script claims
// due tasks by removing their IDs from the queue, so two workers never
// dequeue the same one; the claimer then marks the Hashes running. The
// script only touches its declared key, so it also runs on Redis Cluster.
//
// The caller owns the client:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	defer client.Close()
//	s := redis.New(client, redis.WithPrefix("itemcast:"))
package redis
