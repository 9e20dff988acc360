// Mock in MockGen's output shape, maintained by hand.
// Source: internal/heap/backend.go

// Package heapmock holds a hand-maintained stand-in for mockgen's usual
// output, since this module's generator is not run as part of the build.
package heapmock

import (
	"reflect"

	"github.com/heapforge/segheap/internal/heap"
	"go.uber.org/mock/gomock"
)

// MockBackend is a mock of the heap.Backend interface.
type MockBackend struct {
	ctrl     *gomock.Controller
	recorder *MockBackendMockRecorder
}

// MockBackendMockRecorder is the mock recorder for MockBackend.
type MockBackendMockRecorder struct {
	mock *MockBackend
}

// NewMockBackend creates a new mock instance.
func NewMockBackend(ctrl *gomock.Controller) *MockBackend {
	mock := &MockBackend{ctrl: ctrl}
	mock.recorder = &MockBackendMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBackend) EXPECT() *MockBackendMockRecorder {
	return m.recorder
}

// Extend mocks base method.
func (m *MockBackend) Extend(n uint32) (heap.Addr, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Extend", n)
	ret0, _ := ret[0].(heap.Addr)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Extend indicates an expected call of Extend.
func (mr *MockBackendMockRecorder) Extend(n interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Extend", reflect.TypeOf((*MockBackend)(nil).Extend), n)
}

// Base mocks base method.
func (m *MockBackend) Base() heap.Addr {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Base")
	ret0, _ := ret[0].(heap.Addr)
	return ret0
}

// Base indicates an expected call of Base.
func (mr *MockBackendMockRecorder) Base() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Base", reflect.TypeOf((*MockBackend)(nil).Base))
}

// Break mocks base method.
func (m *MockBackend) Break() heap.Addr {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Break")
	ret0, _ := ret[0].(heap.Addr)
	return ret0
}

// Break indicates an expected call of Break.
func (mr *MockBackendMockRecorder) Break() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Break", reflect.TypeOf((*MockBackend)(nil).Break))
}

// Slice mocks base method.
func (m *MockBackend) Slice(a heap.Addr, n uint32) []byte {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Slice", a, n)
	ret0, _ := ret[0].([]byte)
	return ret0
}

// Slice indicates an expected call of Slice.
func (mr *MockBackendMockRecorder) Slice(a, n interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Slice", reflect.TypeOf((*MockBackend)(nil).Slice), a, n)
}
