package idempotency

import "time"

// Key is a stored Idempotency-Key with the fingerprint and response of the first request that used it
type Key struct {
	ID                 string    `bson:"_id"`
	Key                string    `bson:"key"`
	ServiceID          string    `bson:"serviceId"`
	RequestPath        string    `bson:"requestPath"`
	RequestMethod      string    `bson:"requestMethod"`
	RequestFingerprint string    `bson:"requestFingerprint"`
	LockedAt           time.Time `bson:"lockedAt"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted reports whether a response has been stored
func (k *Key) IsCompleted() bool {
	return k.CompletedAt != nil
}
