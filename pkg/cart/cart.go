// Package cart implements the storefront cart: pure line-item operations,
// a persistence adapter over a key-value slot, and the stateful Store that
// coordinates them.
package cart

import "encoding/json"

// Item is a single purchasable line entry. ID identifies one variant
// (product + size + colour) and is the merge key.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Size     string `json:"size,omitempty"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// NewItem is an item being added to the cart. Its quantity is implicitly 1.
type NewItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Size  string `json:"size,omitempty"`
	Image string `json:"image"`
}

func (n NewItem) item(quantity int) Item {
	return Item{ID: n.ID, Name: n.Name, Price: n.Price, Size: n.Size, Image: n.Image, Quantity: quantity}
}

// ErrorType classifies a cart failure.
type ErrorType string

const (
	ErrorStorage    ErrorType = "storage"
	ErrorValidation ErrorType = "validation"
	ErrorNetwork    ErrorType = "network"
	ErrorUnknown    ErrorType = "unknown"
)

// Error is a user-facing cart failure. Timestamp is epoch millis and is set
// by the Store when the error is recorded.
type Error struct {
	Message   string    `json:"message"`
	Type      ErrorType `json:"type"`
	Timestamp int64     `json:"timestamp"`
}

func (e *Error) Error() string {
	return string(e.Type) + ": " + e.Message
}

func newError(typ ErrorType, msg string) *Error {
	return &Error{Message: msg, Type: typ}
}

// Result is the outcome of a cart operation. Data is only set when Success
// is true.
type Result struct {
	Success bool
	Data    []Item
	Err     *Error
}

// Ok wraps a successful item list.
func Ok(items []Item) Result {
	if items == nil {
		items = []Item{}
	}
	return Result{Success: true, Data: items}
}

// Fail wraps a failure.
func Fail(err *Error) Result {
	return Result{Err: err}
}

// State is the observable state of a Store.
type State struct {
	Items      []Item `json:"items"`
	IsLoading  bool   `json:"isLoading"`
	Error      *Error `json:"error,omitempty"`
	LastAction string `json:"lastAction,omitempty"`
	IsCartOpen bool   `json:"isCartOpen"`
}

func (s State) clone() State {
	out := s
	out.Items = cloneItems(s.Items)
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}

// Op names a cart mutation.
type Op string

const (
	OpAddToCart      Op = "addToCart"
	OpUpdateQuantity Op = "updateQuantity"
	OpRemoveItem     Op = "removeItem"
	OpClearCart      Op = "clearCart"
)

// Command is a stored mutation request. The Store keeps the last failed
// command so it can be dispatched again with identical arguments.
type Command struct {
	Op       Op      `json:"op"`
	Item     NewItem `json:"item,omitzero"`
	ID       string  `json:"id,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
}

// Description is the human readable text shown while the command runs.
func (c Command) Description() string {
	switch c.Op {
	case OpAddToCart:
		if c.Item.Name != "" {
			return "Adding " + c.Item.Name + " to cart"
		}
		return "Adding item to cart"
	case OpUpdateQuantity:
		return "Updating quantity"
	case OpRemoveItem:
		return "Removing item from cart"
	case OpClearCart:
		return "Clearing cart"
	default:
		return "Updating cart"
	}
}

func (c Command) String() string {
	b, _ := json.Marshal(c)
	return string(b)
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
