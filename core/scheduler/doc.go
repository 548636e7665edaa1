// Package scheduler runs delayed dispatch attempts. Each key (an order id)
// holds at most one pending timer; scheduling an already pending key is a
// no-op. Pending timers live in memory and are lost on restart.
package scheduler
