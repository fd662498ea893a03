package cache

import "container/list"

// recencyList tracks last-access order and size for every entry the manager
// knows about, so eviction removes true LRU victims rather than an arbitrary
// entry. The manager's lock covers all access.
type recencyList struct {
	order *list.List // front = most recent
	index map[[32]byte]*list.Element
}

type recencyNode struct {
	hash [32]byte
	size uint64
}

func newRecencyList() *recencyList {
	return &recencyList{
		order: list.New(),
		index: make(map[[32]byte]*list.Element),
	}
}

// touch records an access, inserting the entry if unknown.
func (r *recencyList) touch(hash [32]byte, size uint64) {
	if el, ok := r.index[hash]; ok {
		el.Value.(*recencyNode).size = size
		r.order.MoveToFront(el)
		return
	}
	r.index[hash] = r.order.PushFront(&recencyNode{hash: hash, size: size})
}

// oldest returns the least recently used entry, or false when empty.
func (r *recencyList) oldest() ([32]byte, uint64, bool) {
	el := r.order.Back()
	if el == nil {
		return [32]byte{}, 0, false
	}
	node := el.Value.(*recencyNode)
	return node.hash, node.size, true
}

func (r *recencyList) remove(hash [32]byte) {
	if el, ok := r.index[hash]; ok {
		r.order.Remove(el)
		delete(r.index, hash)
	}
}

func (r *recencyList) reset() {
	r.order.Init()
	clear(r.index)
}
