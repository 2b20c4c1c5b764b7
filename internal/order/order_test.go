package order

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

type item struct {
	id    string
	order float64
}

func (i item) SortOrder() float64 { return i.order }
func (i item) SortID() string      { return i.id }

func TestMidpointEmpty(t *testing.T) {
	assert.Equal(t, Midpoint([]item{}, 0), 1.0)
}

func TestMidpointBetween(t *testing.T) {
	sibs := []item{{"b", 2}, {"c", 3}}
	assert.Equal(t, Midpoint(sibs, 1), 2.5)
}

func TestMidpointHeadAndTail(t *testing.T) {
	sibs := []item{{"a", 1}, {"b", 2}}
	assert.Equal(t, Midpoint(sibs, 0), 0.5)
	assert.Equal(t, Midpoint(sibs, 2), 3.0)
}

func TestMidpointClampsIndex(t *testing.T) {
	sibs := []item{{"a", 1}}
	assert.Equal(t, Midpoint(sibs, -4), 0.5)
	assert.Equal(t, Midpoint(sibs, 9), 2.0)
}

func TestMidpointNonPositiveHead(t *testing.T) {
	sibs := []item{{"a", 0}, {"b", 4}}
	got := Midpoint(sibs, 0)
	if got >= 0 {
		t.Errorf("Midpoint at head = %v, want < 0", got)
	}
}

func TestMidpointStrictlyBetween(t *testing.T) {
	orders := []float64{0.25, 0.5, 1, 1.5, 7, 7.25, 100}
	sibs := make([]item, len(orders))
	for i, o := range orders {
		sibs[i] = item{id: string(rune('a' + i)), order: o}
	}
	for idx := 0; idx <= len(sibs); idx++ {
		got := Midpoint(sibs, idx)
		if idx > 0 && !(got > sibs[idx-1].order) {
			t.Errorf("index %d: %v not above predecessor %v", idx, got, sibs[idx-1].order)
		}
		if idx < len(sibs) && !(got < sibs[idx].order) {
			t.Errorf("index %d: %v not below successor %v", idx, got, sibs[idx].order)
		}
	}
}

func TestSortBreaksTiesByID(t *testing.T) {
	sibs := []item{{"c", 1}, {"a", 2}, {"b", 1}}
	Sort(sibs)
	assert.Equal(t, []string{sibs[0].id, sibs[1].id, sibs[2].id}, []string{"b", "c", "a"})
}

func TestWithout(t *testing.T) {
	sibs := []item{{"a", 1}, {"b", 2}, {"c", 3}}
	rest, at := Without(sibs, "b")
	assert.Equal(t, at, 1)
	assert.Equal(t, len(rest), 2)
	assert.Equal(t, IndexOf(rest, "c"), 1)

	_, at = Without(sibs, "zzz")
	assert.Equal(t, at, -1)
}
