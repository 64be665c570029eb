package member

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrEmptyEmail = errors.New("member email is empty")
	ErrEmailInUse = errors.New("email already belongs to another member")
	ErrNotFound   = errors.New("member not found")
)

// Profile is the customer data captured at checkout. Email is the
// unique identifier; everything else is contact and shipping detail.
type Profile struct {
	FirstName string
	Surname   string
	Email     string
	Phone     string
	Address   string
	City      string
	Country   string
}

// Registry resolves checkout profiles to durable member references.
type Registry interface {
	// ResolveOrCreate returns the member reference for the profile's
	// email, creating a new member when none exists. Existing members
	// keep their stored details; the incoming profile does not
	// overwrite them.
	ResolveOrCreate(ctx context.Context, profile Profile) (int64, error)

	// IsUniqueIdentifier reports whether the profile's email is free to
	// use, treating currentRef's own record as free. currentRef 0 means
	// an anonymous checkout.
	IsUniqueIdentifier(ctx context.Context, profile Profile, currentRef int64) (bool, error)

	// Get returns the stored profile for a member reference.
	Get(ctx context.Context, ref int64) (Profile, error)
}

// MemoryRegistry is a mutex-guarded in-memory Registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	nextRef int64
	byRef   map[int64]Profile
	byEmail map[string]int64
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		nextRef: 1,
		byRef:   make(map[int64]Profile),
		byEmail: make(map[string]int64),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryRegistry) ResolveOrCreate(_ context.Context, profile Profile) (int64, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return 0, ErrEmptyEmail
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ref, ok := r.byEmail[email]; ok {
		return ref, nil
	}

	ref := r.nextRef
	r.nextRef++
	profile.Email = email
	r.byRef[ref] = profile
	r.byEmail[email] = ref
	return ref, nil
}

func (r *MemoryRegistry) IsUniqueIdentifier(_ context.Context, profile Profile, currentRef int64) (bool, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return false, ErrEmptyEmail
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.byEmail[email]
	if !ok {
		return true, nil
	}
	return ref == currentRef, nil
}

func (r *MemoryRegistry) Get(_ context.Context, ref int64) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.byRef[ref]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}
