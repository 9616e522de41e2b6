package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	args := m.Called(ctx, room)
	var created models.Room
	if val := args.Get(0); val != nil {
		created = val.(models.Room)
	}
	return created, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) UpdateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	args := m.Called(ctx, room)
	var updated models.Room
	if val := args.Get(0); val != nil {
		updated = val.(models.Room)
	}
	return updated, args.Error(1)
}

func (m *RoomRepositoryMock) UpdateStatus(ctx context.Context, roomID int, status models.RoomStatus) error {
	args := m.Called(ctx, roomID, status)
	return args.Error(0)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ListByCreator(ctx context.Context, userID int) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	return roomList(args)
}

func (m *RoomRepositoryMock) ListParticipating(ctx context.Context, userID int) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	return roomList(args)
}

func (m *RoomRepositoryMock) ListPublic(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	args := m.Called(ctx, filter)
	return roomList(args)
}

func (m *RoomRepositoryMock) ListStale(ctx context.Context, now time.Time) ([]models.Room, error) {
	args := m.Called(ctx, now)
	return roomList(args)
}

func roomList(args mock.Arguments) ([]models.Room, error) {
	var list []models.Room
	if val := args.Get(0); val != nil {
		list = val.([]models.Room)
	}
	return list, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)

func (m *NotificationRepositoryMock) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var created models.Notification
	if val := args.Get(0); val != nil {
		created = val.(models.Notification)
	}
	return created, args.Error(1)
}

func (m *NotificationRepositoryMock) GetNotification(ctx context.Context, notificationID int) (models.Notification, error) {
	args := m.Called(ctx, notificationID)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) ListNotifications(ctx context.Context, userID int, filter models.NotificationFilter) ([]models.Notification, error) {
	args := m.Called(ctx, userID, filter)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) CountUnread(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID int) (models.Notification, error) {
	args := m.Called(ctx, notificationID)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) DeleteNotification(ctx context.Context, notificationID int) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

// Delivery is one event captured by Broadcaster.
type Delivery struct {
	RoomID int
	UserID int
	Event  models.Event
}

// Broadcaster records every event it is asked to deliver.
type Broadcaster struct {
	mu       sync.Mutex
	Room     []Delivery
	User     []Delivery
	Detached []Delivery
}

func (b *Broadcaster) ToRoom(ctx context.Context, roomID int, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Room = append(b.Room, Delivery{RoomID: roomID, Event: event})
}

func (b *Broadcaster) ToUser(ctx context.Context, userID int, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.User = append(b.User, Delivery{UserID: userID, Event: event})
}

func (b *Broadcaster) DetachUser(ctx context.Context, roomID int, userID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Detached = append(b.Detached, Delivery{RoomID: roomID, UserID: userID})
}

// RoomEvents returns the room events of the given type.
func (b *Broadcaster) RoomEvents(typ models.EventType) []Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Delivery
	for _, d := range b.Room {
		if d.Event.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

// UserEvents returns the user events of the given type addressed to userID.
func (b *Broadcaster) UserEvents(userID int, typ models.EventType) []Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Delivery
	for _, d := range b.User {
		if d.UserID == userID && d.Event.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
