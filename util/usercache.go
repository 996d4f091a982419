package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"gorm.io/gorm"
)

const defaultUserEmailCacheSize = 1000

type userEntry struct {
	userID uint
	email  string
}

// emailLRU maps user ids to emails for the endpoint call logger.
type emailLRU struct {
	mu       sync.Mutex
	order    *list.List
	items    map[uint]*list.Element
	capacity int
}

func newEmailLRU(capacity int) *emailLRU {
	if capacity <= 0 {
		capacity = defaultUserEmailCacheSize
	}
	return &emailLRU{order: list.New(), items: make(map[uint]*list.Element), capacity: capacity}
}

func (l *emailLRU) get(userID uint) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ele, ok := l.items[userID]
	if !ok {
		return "", false
	}
	l.order.MoveToFront(ele)
	return ele.Value.(userEntry).email, true
}

func (l *emailLRU) set(userID uint, email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ele, ok := l.items[userID]; ok {
		ele.Value = userEntry{userID: userID, email: email}
		l.order.MoveToFront(ele)
		return
	}
	l.items[userID] = l.order.PushFront(userEntry{userID: userID, email: email})
	if l.order.Len() > l.capacity {
		tail := l.order.Back()
		delete(l.items, tail.Value.(userEntry).userID)
		l.order.Remove(tail)
	}
}

func (l *emailLRU) remove(userID uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ele, ok := l.items[userID]; ok {
		delete(l.items, userID)
		l.order.Remove(ele)
	}
}

var (
	userCacheMu sync.RWMutex
	userCache   *emailLRU
)

func currentUserCache() *emailLRU {
	userCacheMu.RLock()
	defer userCacheMu.RUnlock()
	return userCache
}

// InitUserEmailCache initializes the cache; capacity <= 0 means 1000.
func InitUserEmailCache(capacity int) {
	userCacheMu.Lock()
	defer userCacheMu.Unlock()
	userCache = newEmailLRU(capacity)
}

// InitUserEmailCacheFromEnv sizes the cache from USER_EMAIL_CACHE_SIZE.
func InitUserEmailCacheFromEnv() {
	n, _ := strconv.Atoi(os.Getenv("USER_EMAIL_CACHE_SIZE"))
	InitUserEmailCache(n)
}

func UserEmailCacheGet(userID uint) (string, bool) {
	if c := currentUserCache(); c != nil {
		return c.get(userID)
	}
	return "", false
}

func UserEmailCacheSet(userID uint, email string) {
	if c := currentUserCache(); c != nil {
		c.set(userID, email)
	}
}

// ForgetUserEmail drops a cached entry after the user's email changed or
// the user was deleted.
func ForgetUserEmail(userID uint) {
	if c := currentUserCache(); c != nil {
		c.remove(userID)
	}
}

// GetUserEmail returns the email for userID using cache, falling back to DB.
func GetUserEmail(db *gorm.DB, userID uint) string {
	if userID == 0 {
		return ""
	}
	if email, ok := UserEmailCacheGet(userID); ok {
		return email
	}
	if db == nil {
		return ""
	}
	var u struct{ Email string }
	if err := db.Table("users").Select("email").Where("id = ? AND deleted_at IS NULL", userID).Take(&u).Error; err != nil {
		return ""
	}
	if u.Email != "" {
		UserEmailCacheSet(userID, u.Email)
	}
	return u.Email
}
