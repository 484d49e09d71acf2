package jobs

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/jzx17/jobpoll/pkg/types"
)

// Kind tells which shape a collection was delivered in
type Kind int

const (
	// KindList is a bare JSON array
	KindList Kind = iota
	// KindPaged is a {"content": [...]} page with paging metadata
	KindPaged
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindPaged:
		return "paged"
	default:
		return "unknown"
	}
}

// Page holds paging metadata of a KindPaged collection
type Page struct {
	Number        int
	Size          int
	TotalElements int
	TotalPages    int
	Last          bool
}

// Collection is a list of backend items with its original shape
type Collection struct {
	Kind  Kind
	Items []gjson.Result
	Page  Page // zero unless Kind is KindPaged
}

// Len returns the number of items
func (c Collection) Len() int {
	return len(c.Items)
}

// Empty reports whether the collection has no items
func (c Collection) Empty() bool {
	return len(c.Items) == 0
}

// NormalizeCollection turns any of the backend's list shapes into a Collection.
//
// Accepted shapes:
//   - a bare array
//   - a page object {"content": [...], "number": 0, "totalElements": 3, ...}
//   - an envelope {"data": <any accepted shape>}
//   - any other object, whose first array member is taken as the list
//
// A missing value, null or an object without lists is an empty list.
// Scalars are rejected with types.ErrBadResponse.
func NormalizeCollection(value gjson.Result) (Collection, error) {
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return Collection{Kind: KindList}, nil

	case value.IsArray():
		return Collection{Kind: KindList, Items: value.Array()}, nil

	case value.IsObject():
		if data := value.Get("data"); data.Exists() {
			return NormalizeCollection(data)
		}
		if content := value.Get("content"); content.IsArray() {
			return Collection{
				Kind:  KindPaged,
				Items: content.Array(),
				Page: Page{
					Number:        int(value.Get("number").Int()),
					Size:          int(value.Get("size").Int()),
					TotalElements: int(value.Get("totalElements").Int()),
					TotalPages:    int(value.Get("totalPages").Int()),
					Last:          value.Get("last").Bool(),
				},
			}, nil
		}

		list := Collection{Kind: KindList}
		value.ForEach(func(_, member gjson.Result) bool {
			if member.IsArray() {
				list.Items = member.Array()
				return false
			}
			return true
		})
		return list, nil

	default:
		return Collection{}, fmt.Errorf("%w: expected a list, got %s", types.ErrBadResponse, value.Type)
	}
}

// parseBody validates a response body and returns its root value
func parseBody(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, types.Retryable(fmt.Errorf("%w: invalid JSON", types.ErrBadResponse))
	}
	return gjson.ParseBytes(body), nil
}
