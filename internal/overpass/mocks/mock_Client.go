// Package mocks provides test doubles for the overpass client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	overpass "github.com/sells-group/cafe-sync/internal/overpass"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Query provides a mock function with given fields: ctx, ql
func (_m *MockClient) Query(ctx context.Context, ql string) (*overpass.Response, error) {
	ret := _m.Called(ctx, ql)

	if len(ret) == 0 {
		panic("no return value specified for Query")
	}

	var r0 *overpass.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*overpass.Response, error)); ok {
		return rf(ctx, ql)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *overpass.Response); ok {
		r0 = rf(ctx, ql)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*overpass.Response)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, ql)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
