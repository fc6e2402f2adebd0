// Package modeltest provides the shop model shared by package tests.
package modeltest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/model"
)

// ShopYAML defines customers with embedded addresses and one-to-one
// accounts, orders with positioned lines, products in many-to-many
// categories and a polymorphic payment hierarchy.
const ShopYAML = `
version: "1"
types:
  - name: Customer
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: email, kind: string, natural_key: true}
      - {name: name, kind: string}
      - {name: createdAt, kind: time, read_only: true}
      - {name: address, target: Address}
      - {name: account, target: Account, association: one-to-one, opposite: customer, cascade: true}
      - {name: orders, target: Order, association: one-to-many, opposite: customer}
  - name: Account
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: login, kind: string, natural_key: true}
      - {name: customer, target: Customer, association: one-to-one}
  - name: Address
    embedded: true
    properties:
      - {name: street, kind: string}
      - {name: city, kind: string}
  - name: Order
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: number, kind: string, natural_key: true}
      - {name: customer, target: Customer, association: many-to-one}
      - {name: status, kind: string}
      - {name: total, kind: float64}
      - {name: lines, target: OrderLine, association: one-to-many, opposite: order, cascade: true, position: lineNo}
  - name: OrderLine
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: ref, kind: string, natural_key: true}
      - {name: order, target: Order}
      - {name: lineNo, kind: int}
      - {name: product, target: Product}
      - {name: quantity, kind: int}
  - name: Product
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: sku, kind: string, natural_key: true}
      - {name: name, kind: string}
      - {name: price, kind: float64}
      - {name: categories, target: Category, association: many-to-many, opposite: products}
  - name: Category
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: code, kind: string, natural_key: true}
      - {name: products, target: Product, association: many-to-many}
  - name: Payment
    abstract: true
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: reference, kind: string, natural_key: true}
      - {name: amount, kind: float64}
      - {name: order, target: Order}
  - name: CardPayment
    extends: Payment
    properties:
      - {name: cardNumber, kind: string}
  - name: BankPayment
    extends: Payment
    properties:
      - {name: iban, kind: string}
`

// Shop parses ShopYAML and fails the test on error.
func Shop(t testing.TB) *model.Model {
	t.Helper()

	m, err := model.Parse([]byte(ShopYAML))
	require.NoError(t, err)

	return m
}

// BoardYAML defines boards owning their associations from one side only: a
// unidirectional tag list, a keyed map of pinned tags and embedded notes in
// a list and in a map.
const BoardYAML = `
version: "1"
types:
  - name: Tag
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: label, kind: string, natural_key: true}
  - name: Note
    embedded: true
    properties:
      - {name: text, kind: string}
      - {name: tag, target: Tag}
  - name: Board
    properties:
      - {name: id, kind: int64, identifier: true, generated: true}
      - {name: title, kind: string, natural_key: true}
      - {name: tags, target: Tag, association: one-to-many}
      - {name: pinned, target: Tag, multiplicity: map}
      - {name: notes, target: Note, multiplicity: list}
      - {name: drafts, target: Note, multiplicity: map}
`

// Board parses BoardYAML and fails the test on error.
func Board(t testing.TB) *model.Model {
	t.Helper()

	m, err := model.Parse([]byte(BoardYAML))
	require.NoError(t, err)

	return m
}

// MustType returns the named type of m.
func MustType(t testing.TB, m *model.Model, name string) *model.Type {
	t.Helper()

	typ, err := m.Type(name)
	require.NoError(t, err)

	return typ
}

// MustProperty returns the property "Type.name" of m.
func MustProperty(t testing.TB, m *model.Model, typeName, name string) *model.Property {
	t.Helper()

	p, err := MustType(t, m, typeName).Property(name)
	require.NoError(t, err)

	return p
}
