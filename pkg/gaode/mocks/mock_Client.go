// Package mocks provides test doubles for the gaode client.
package mocks

import (
	"context"

	gaode "github.com/sells-group/site-scout/pkg/gaode"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// TextSearch provides a mock function with given fields: ctx, params
func (_m *MockClient) TextSearch(ctx context.Context, params gaode.TextSearchParams) (*gaode.SearchResponse, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for TextSearch")
	}

	var r0 *gaode.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, gaode.TextSearchParams) (*gaode.SearchResponse, error)); ok {
		return rf(ctx, params)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*gaode.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// AroundSearch provides a mock function with given fields: ctx, params
func (_m *MockClient) AroundSearch(ctx context.Context, params gaode.AroundSearchParams) (*gaode.SearchResponse, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for AroundSearch")
	}

	var r0 *gaode.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, gaode.AroundSearchParams) (*gaode.SearchResponse, error)); ok {
		return rf(ctx, params)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*gaode.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// HasKey provides a mock function with no fields
func (_m *MockClient) HasKey() bool {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for HasKey")
	}

	return ret.Bool(0)
}

// NewMockClient creates a new instance of MockClient and registers cleanup.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
