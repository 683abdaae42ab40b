// Package pqueue is a heap-backed priority queue with float priorities.
package pqueue

import (
	"container/heap"
)

type Item[T any] struct {
	Value    T
	Priority float32
	index    int
}

// PriorityQueue pops the lowest priority first unless built with NewMaxQueue.
type PriorityQueue[T any] struct {
	items   []*Item[T]
	highest bool
}

func NewMinQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

func NewMaxQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{highest: true}
}

func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

func (pq *PriorityQueue[T]) Less(i, j int) bool {
	if pq.highest {
		return pq.items[i].Priority > pq.items[j].Priority
	}
	return pq.items[i].Priority < pq.items[j].Priority
}

func (pq *PriorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

// Push and Pop satisfy heap.Interface. Use PushItem and PopItem instead.
func (pq *PriorityQueue[T]) Push(x any) {
	item := x.(*Item[T])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *PriorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	pq.items = old[:n-1]
	return item
}

func (pq *PriorityQueue[T]) PushItem(value T, priority float32) *Item[T] {
	item := &Item[T]{Value: value, Priority: priority}
	heap.Push(pq, item)
	return item
}

func (pq *PriorityQueue[T]) PopItem() *Item[T] {
	return heap.Pop(pq).(*Item[T])
}

func (pq *PriorityQueue[T]) Top() *Item[T] {
	return pq.items[0]
}

func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.Len() == 0
}

func (pq *PriorityQueue[T]) Update(item *Item[T], priority float32) {
	item.Priority = priority
	heap.Fix(pq, item.index)
}

// Nearest returns the n values with the lowest priority, lowest first.
// It keeps a bounded max-heap so memory stays at n items.
func Nearest[T any](values []T, n int, priority func(T) float32) []T {
	if n <= 0 {
		return nil
	}
	pq := NewMaxQueue[T]()
	for _, v := range values {
		p := priority(v)
		if pq.Len() < n {
			pq.PushItem(v, p)
			continue
		}
		if top := pq.Top(); p < top.Priority {
			top.Value = v
			pq.Update(top, p)
		}
	}
	result := make([]T, pq.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = pq.PopItem().Value
	}
	return result
}
