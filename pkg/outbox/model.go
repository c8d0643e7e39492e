package outbox

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	statusPending = "PENDING"
	statusSent    = "SENT"
)

// outboxEntity is one staged publication. It is written in the same Mongo
// transaction as the event append, so a stored event always has a matching
// outbox row and vice versa.
type outboxEntity struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Payload        string             `bson:"payload"`
	Key            string             `bson:"key"`
	Topic          string             `bson:"topic"`
	Status         string             `bson:"status"`
	CreatedAt      time.Time          `bson:"createdAt"`
	LockExpiresAt  time.Time          `bson:"lockExpiresAt"`
	AttemptsToSend int32              `bson:"attemptsToSend"`
}
