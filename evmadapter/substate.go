package evmadapter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// substate is one level of the substate stack spec.md §4.6 describes:
// enter/exit-commit/exit-revert/exit-discard semantics over maps of
// pending deletes, code, storage, and balance-transfer overlays, plus the
// logs emitted at this depth. The teacher's journal is a linear list of
// typed entries walked for coldness/revert lookups
// (x/vm/statedb/state_object.go); this is the same shape adapted to a
// stack-of-maps instead of typed undo entries, since this adapter never
// mutates the VKV and therefore never needs to replay an undo against
// persisted state — only against these overlays.
type substate struct {
	deletes          map[common.Address]bool
	code             map[common.Address][]byte
	storage          map[common.Address]Storage
	transferBalances map[common.Address]*big.Int
	logs             []*logEntry

	accessedAddresses map[common.Address]bool
	accessedStorage   map[common.Address]map[common.Hash]bool
}

type logEntry struct {
	address common.Address
	topics  []common.Hash
	data    []byte
}

func newSubstate() *substate {
	return &substate{
		deletes:           make(map[common.Address]bool),
		code:              make(map[common.Address][]byte),
		storage:           make(map[common.Address]Storage),
		transferBalances:  make(map[common.Address]*big.Int),
		accessedAddresses: make(map[common.Address]bool),
		accessedStorage:   make(map[common.Address]map[common.Hash]bool),
	}
}

// stack is the adapter's substate stack. Index 0 is the root substate,
// created at adapter construction and never popped.
type stack struct {
	frames []*substate
}

func newStack() *stack {
	return &stack{frames: []*substate{newSubstate()}}
}

func (s *stack) top() *substate {
	return s.frames[len(s.frames)-1]
}

// enter pushes a new substate inheriting nothing directly — lookups walk
// the whole stack leaf-to-root instead, which is equivalent to
// inheritance without the copy cost spec.md's "inherits... from its
// parent" language describes.
func (s *stack) enter() {
	s.frames = append(s.frames, newSubstate())
}

// exitCommit merges the top substate's maps and logs into its parent and
// pops it.
func (s *stack) exitCommit() {
	if len(s.frames) < 2 {
		return
	}
	child := s.frames[len(s.frames)-1]
	parent := s.frames[len(s.frames)-2]

	for addr := range child.deletes {
		parent.deletes[addr] = true
	}
	for addr, code := range child.code {
		parent.code[addr] = code
	}
	for addr, ov := range child.storage {
		if parent.storage[addr] == nil {
			parent.storage[addr] = make(Storage)
		}
		for k, v := range ov {
			parent.storage[addr][k] = v
		}
	}
	for addr, delta := range child.transferBalances {
		if existing, ok := parent.transferBalances[addr]; ok {
			existing.Add(existing, delta)
		} else {
			parent.transferBalances[addr] = new(big.Int).Set(delta)
		}
	}
	parent.logs = append(parent.logs, child.logs...)
	for addr := range child.accessedAddresses {
		parent.accessedAddresses[addr] = true
	}
	for addr, slots := range child.accessedStorage {
		if parent.accessedStorage[addr] == nil {
			parent.accessedStorage[addr] = make(map[common.Hash]bool)
		}
		for slot := range slots {
			parent.accessedStorage[addr][slot] = true
		}
	}

	s.frames = s.frames[:len(s.frames)-1]
}

// exitRevert and exitDiscard both drop the top substate's maps and logs
// without merging them into the parent; the distinction the interpreter
// makes between "revert" (an explicit REVERT opcode, refunds preserved
// per EIP rules upstream of this adapter) and "discard" (an out-of-gas or
// other hard failure) does not affect this adapter's state, since it
// holds no persistent writes to roll back.
func (s *stack) exitRevert() {
	s.pop()
}

func (s *stack) exitDiscard() {
	s.pop()
}

func (s *stack) pop() {
	if len(s.frames) < 2 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// isDeleted walks leaf-to-root for a self-destruct marker.
func (s *stack) isDeleted(addr common.Address) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].deletes[addr] {
			return true
		}
	}
	return false
}

// overlayCode returns (code, true) if any substate overlays this
// address's code, searching leaf-to-root.
func (s *stack) overlayCode(addr common.Address) ([]byte, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if code, ok := s.frames[i].code[addr]; ok {
			return code, true
		}
	}
	return nil, false
}

// overlayStorage returns (value, true) if any substate overlays this
// slot, searching leaf-to-root.
func (s *stack) overlayStorage(addr common.Address, slot common.Hash) (common.Hash, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if ov, ok := s.frames[i].storage[addr]; ok {
			if v, ok := ov[slot]; ok {
				return v, true
			}
		}
	}
	return common.Hash{}, false
}

// transferDelta returns the accumulated transfer_balance delta for addr
// across the whole stack.
func (s *stack) transferDelta(addr common.Address) *big.Int {
	total := new(big.Int)
	for _, frame := range s.frames {
		if delta, ok := frame.transferBalances[addr]; ok {
			total.Add(total, delta)
		}
	}
	return total
}

func (s *stack) addTransferDelta(addr common.Address, delta *big.Int) {
	top := s.top()
	if existing, ok := top.transferBalances[addr]; ok {
		existing.Add(existing, delta)
		return
	}
	top.transferBalances[addr] = new(big.Int).Set(delta)
}

// addressInAccessList walks leaf-to-root for the access-list coldness
// check spec.md §4.6 requires.
func (s *stack) addressInAccessList(addr common.Address) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].accessedAddresses[addr] {
			return true
		}
	}
	return false
}

func (s *stack) slotInAccessList(addr common.Address, slot common.Hash) (addrOk, slotOk bool) {
	addrOk = s.addressInAccessList(addr)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if slots, ok := s.frames[i].accessedStorage[addr]; ok {
			if slots[slot] {
				return addrOk, true
			}
		}
	}
	return addrOk, false
}

func (s *stack) addAddressToAccessList(addr common.Address) {
	s.top().accessedAddresses[addr] = true
}

func (s *stack) addSlotToAccessList(addr common.Address, slot common.Hash) {
	s.top().accessedAddresses[addr] = true
	if s.top().accessedStorage[addr] == nil {
		s.top().accessedStorage[addr] = make(map[common.Hash]bool)
	}
	s.top().accessedStorage[addr][slot] = true
}

func (s *stack) addLog(entry *logEntry) {
	s.top().logs = append(s.top().logs, entry)
}

// allLogs flattens every substate's logs bottom-to-top, in the order
// they'd have been committed.
func (s *stack) allLogs() []*logEntry {
	var out []*logEntry
	for _, frame := range s.frames {
		out = append(out, frame.logs...)
	}
	return out
}
