package cart

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AddItem adds one unit of n. An existing entry with the same ID has its
// quantity incremented; otherwise n is appended with quantity 1.
func AddItem(items []Item, n NewItem) (res Result) {
	defer recoverResult(&res)

	switch {
	case strings.TrimSpace(n.ID) == "":
		return Fail(newError(ErrorValidation, "item id is required"))
	case strings.TrimSpace(n.Name) == "":
		return Fail(newError(ErrorValidation, "item name is required"))
	case strings.TrimSpace(n.Price) == "":
		return Fail(newError(ErrorValidation, "item price is required"))
	}

	out := cloneItems(items)
	if i := indexOf(out, n.ID); i >= 0 {
		out[i].Quantity++
		return Ok(out)
	}
	return Ok(append(out, n.item(1)))
}

// UpdateQuantity sets the quantity of id exactly. A quantity <= 0 removes
// the entry. An unknown id is left alone; update never creates items.
func UpdateQuantity(items []Item, id string, quantity int) (res Result) {
	defer recoverResult(&res)

	if quantity <= 0 {
		return RemoveItem(items, id)
	}
	out := cloneItems(items)
	if i := indexOf(out, id); i >= 0 {
		out[i].Quantity = quantity
	}
	return Ok(out)
}

// RemoveItem filters id out of the list. Removing an absent id succeeds.
func RemoveItem(items []Item, id string) (res Result) {
	defer recoverResult(&res)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return Ok(out)
}

// Clear returns an empty list.
func Clear() Result {
	return Ok([]Item{})
}

// Apply runs cmd against items.
func Apply(items []Item, cmd Command) Result {
	switch cmd.Op {
	case OpAddToCart:
		return AddItem(items, cmd.Item)
	case OpUpdateQuantity:
		return UpdateQuantity(items, cmd.ID, cmd.Quantity)
	case OpRemoveItem:
		return RemoveItem(items, cmd.ID)
	case OpClearCart:
		return Clear()
	default:
		return Fail(newError(ErrorValidation, fmt.Sprintf("unsupported cart operation %q", cmd.Op)))
	}
}

// leadingNumber matches the decimal number a price string starts with.
var leadingNumber = regexp.MustCompile(`^([+-]?)(\d*)\.?(\d*)([eE][+-]?\d+)?`)

// Total sums price*quantity over items and formats it with two decimals.
// Each price is read up to its first non-numeric character, so "20.00 USD"
// counts as 20. Prices with no leading number count as zero.
func Total(items []Item) string {
	sum := decimal.Zero
	for _, it := range items {
		p, ok := parsePrice(it.Price)
		if !ok {
			continue
		}
		sum = sum.Add(p.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.StringFixed(2)
}

func parsePrice(price string) (decimal.Decimal, bool) {
	m := leadingNumber.FindStringSubmatch(strings.TrimLeft(price, " \t\n\r\f\v"))
	if m == nil || m[2] == "" && m[3] == "" {
		return decimal.Zero, false
	}
	num := m[1] + "0" + m[2]
	if m[3] != "" {
		num += "." + m[3]
	}
	p, err := decimal.NewFromString(num + m[4])
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

// ItemCount is the sum of all quantities.
func ItemCount(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func recoverResult(res *Result) {
	if r := recover(); r != nil {
		*res = Fail(newError(ErrorUnknown, fmt.Sprintf("unexpected cart failure: %v", r)))
	}
}
