package dynamo

import "time"

var IsConditionalCheckFailed = isConditionalCheckFailed

// NewStoreForTests builds a store around a mocked client with a fixed clock.
func NewStoreForTests(client dynamoClient, table string, now time.Time, opts ...Option) *Store {
	s := newStore(client, table, opts...)
	s.now = func() time.Time { return now }

	return s
}
