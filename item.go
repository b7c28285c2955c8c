package longpoll

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
)

// Item is a single produced value. It is never modified after NewItem.
type Item struct {
	ID        uuid.UUID
	Timestamp time.Time
	Data      interface{}
}

func NewItem(data interface{}, at time.Time) Item {
	return Item{ID: uuid.Must(uuid.NewV4()), Timestamp: at, Data: data}
}

func (this Item) IsZero() bool {
	return this.ID == uuid.Nil
}

func (this Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string      `json:"timestamp"`
		Data      interface{} `json:"data"`
	}{FormatTimestamp(this.Timestamp), this.Data})
}

// Generator produces the payload of the next Item.
type Generator func() interface{}

var letters = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

// Letters returns a Generator yielding one of the letters A through J.
func Letters() Generator {
	return func() interface{} {
		return letters[rand.Intn(len(letters))]
	}
}

// RandomFloat returns a Generator yielding a number in [0, 1).
func RandomFloat() Generator {
	return func() interface{} {
		return rand.Float64()
	}
}

// RandomInt returns a Generator yielding a number in [0, n).
func RandomInt(n int) Generator {
	return func() interface{} {
		return rand.Intn(n)
	}
}
