package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizDefinitionKey returns the cache key for a published quiz definition
func (r *CacheKeyStruct) QuizDefinitionKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:definition", quizID)
}

// SessionLockKey returns the lock key serializing operations on one session
func (r *CacheKeyStruct) SessionLockKey(sessionToken string) string {
	return fmt.Sprintf("lock:session:%s", sessionToken)
}

// SessionStartLockKey returns the lock key serializing session starts for a user and quiz
func (r *CacheKeyStruct) SessionStartLockKey(quizID string, userID int) string {
	return fmt.Sprintf("lock:user:%d:quiz:%s:start", userID, quizID)
}

// SessionEventsChannel returns the Redis PubSub channel carrying a session's state changes
func (r *CacheKeyStruct) SessionEventsChannel(sessionToken string) string {
	return fmt.Sprintf("session:%s:events", sessionToken)
}

var CacheKey = NewCacheKeyStruct()
