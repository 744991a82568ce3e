package routing

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRecencySize bounds the number of (user, channel) pairs remembered.
const DefaultRecencySize = 10000

type recencyKey struct {
	userID    string
	channelID string
}

// Recency remembers, per user and channel, the last bot configuration that
// answered. Safe for concurrent use; racing writes to one key keep the last.
type Recency struct {
	cache *lru.Cache[recencyKey, uuid.UUID]
}

func NewRecency(size int) *Recency {
	if size <= 0 {
		size = DefaultRecencySize
	}
	c, err := lru.New[recencyKey, uuid.UUID](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &Recency{cache: c}
}

func (r *Recency) Get(userID, channelID string) (uuid.UUID, bool) {
	return r.cache.Get(recencyKey{userID, channelID})
}

func (r *Recency) Set(userID, channelID string, botID uuid.UUID) {
	r.cache.Add(recencyKey{userID, channelID}, botID)
}

func (r *Recency) Evict(userID, channelID string) {
	r.cache.Remove(recencyKey{userID, channelID})
}

func (r *Recency) Len() int { return r.cache.Len() }
