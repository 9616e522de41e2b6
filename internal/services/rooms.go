package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
	maxExtensionMinutes  = 240
)

// RoomInput carries the fields accepted when creating a room.
type RoomInput struct {
	Title             string
	Description       string
	Visibility        models.Visibility
	StartTime         time.Time
	EndTime           time.Time
	MaxParticipants   *int
	Tag               string
	IsRecurring       bool
	RecurrencePattern string
}

// RoomUpdate carries optional field changes. Nil fields are left unchanged.
type RoomUpdate struct {
	Title           *string
	Description     *string
	Tag             *string
	MaxParticipants *int
	Summary         *string
	StartTime       *time.Time
	EndTime         *time.Time
}

// RoomService owns the room aggregate and its host operations.
type RoomService struct {
	rooms         repositories.RoomRepository
	participants  repositories.ParticipantRepository
	notifications *NotificationService
	broadcaster   Broadcaster
	now           Clock
}

// NewRoomService constructs a RoomService.
func NewRoomService(
	rooms repositories.RoomRepository,
	participants repositories.ParticipantRepository,
	notifications *NotificationService,
	broadcaster Broadcaster,
	now Clock,
) *RoomService {
	return &RoomService{
		rooms:         rooms,
		participants:  participants,
		notifications: notifications,
		broadcaster:   orNoop(broadcaster),
		now:           orNow(now),
	}
}

// Now returns the service clock.
func (s *RoomService) Now() time.Time {
	return s.now()
}

// Refresh recomputes the room status and persists it when the cache is stale.
func (s *RoomService) Refresh(ctx context.Context, room models.Room) (models.Room, error) {
	status := room.ResolveStatus(s.now())
	if status == room.Status {
		return room, nil
	}
	if err := s.rooms.UpdateStatus(ctx, room.ID, status); err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return models.Room{}, ErrRoomNotFound
		}
		return models.Room{}, err
	}
	room.Status = status
	return room, nil
}

// load fetches a room and heals its status cache.
func (s *RoomService) load(ctx context.Context, roomID int) (models.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return s.Refresh(ctx, room)
}

func (s *RoomService) refreshAll(ctx context.Context, rooms []models.Room) ([]models.Room, error) {
	out := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		refreshed, err := s.Refresh(ctx, room)
		if err != nil {
			return nil, err
		}
		out = append(out, refreshed)
	}
	return out, nil
}

// Create validates and stores a room. The creator becomes its first active participant.
func (s *RoomService) Create(ctx context.Context, creatorID int, in RoomInput) (models.Room, error) {
	now := s.now()
	room, err := buildRoom(creatorID, in, now)
	if err != nil {
		return models.Room{}, err
	}

	created, err := s.rooms.CreateRoom(ctx, room)
	if err != nil {
		return models.Room{}, err
	}
	if _, err := s.participants.Activate(ctx, created.ID, creatorID, now); err != nil {
		return models.Room{}, fmt.Errorf("add creator as participant: %w", err)
	}
	return created, nil
}

func buildRoom(creatorID int, in RoomInput, now time.Time) (models.Room, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || len([]rune(title)) > maxTitleLength {
		return models.Room{}, ErrValidation.WithMessage("Title is required and must be at most %d characters", maxTitleLength)
	}
	if len([]rune(in.Description)) > maxDescriptionLength {
		return models.Room{}, ErrValidation.WithMessage("Description must be at most %d characters", maxDescriptionLength)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if visibility != models.VisibilityPrivate && visibility != models.VisibilityPublic {
		return models.Room{}, ErrValidation.WithMessage("Room type must be private or public")
	}

	tag := in.Tag
	if tag == "" {
		tag = "other"
	}
	if !slices.Contains(models.RoomTags, tag) {
		return models.Room{}, ErrValidation.WithMessage("Invalid tag %q", tag)
	}
	if in.MaxParticipants != nil && *in.MaxParticipants <= 0 {
		return models.Room{}, ErrValidation.WithMessage("Max participants must be positive")
	}

	var pattern *string
	if in.IsRecurring {
		p := in.RecurrencePattern
		if !slices.Contains(models.RecurrencePatterns, p) {
			return models.Room{}, ErrValidation.WithMessage("Invalid recurrence pattern %q", p)
		}
		pattern = &p
	}

	if in.StartTime.Before(now) {
		return models.Room{}, ErrInvalidRange.WithMessage("Start time must be in the future")
	}
	if !in.EndTime.After(in.StartTime) {
		return models.Room{}, ErrInvalidRange.WithMessage("End time must be after start time")
	}

	return models.Room{
		Title:             title,
		Description:       in.Description,
		Visibility:        visibility,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		MaxParticipants:   in.MaxParticipants,
		Tag:               tag,
		Status:            models.ResolveStatus(in.StartTime, in.EndTime, now),
		CreatorID:         creatorID,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: pattern,
	}, nil
}

// Get returns a room with its active participants. Private rooms are visible to the
// creator and to users holding any membership record.
func (s *RoomService) Get(ctx context.Context, roomID int, callerID int) (models.RoomDetail, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return models.RoomDetail{}, err
	}
	if err := s.checkAccess(ctx, room, callerID); err != nil {
		return models.RoomDetail{}, err
	}

	ids, err := s.participants.ListActiveUserIDs(ctx, roomID)
	if err != nil {
		return models.RoomDetail{}, err
	}
	if ids == nil {
		ids = []int{}
	}
	return models.RoomDetail{Room: room, Participants: ids}, nil
}

// checkAccess enforces read access to a private room.
func (s *RoomService) checkAccess(ctx context.Context, room models.Room, callerID int) error {
	if !room.IsPrivate() || room.IsCreator(callerID) {
		return nil
	}
	_, err := s.participants.GetParticipant(ctx, room.ID, callerID)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return ErrForbidden.WithMessage("Not authorized to access this room")
	}
	return err
}

// ListMine returns rooms created by the user.
func (s *RoomService) ListMine(ctx context.Context, userID int) ([]models.Room, error) {
	rooms, err := s.rooms.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rooms)
}

// ListParticipating returns rooms the user belongs to but did not create.
func (s *RoomService) ListParticipating(ctx context.Context, userID int) ([]models.Room, error) {
	rooms, err := s.rooms.ListParticipating(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rooms)
}

// ListPublic returns public rooms that have not ended, optionally filtered.
func (s *RoomService) ListPublic(ctx context.Context, status models.RoomStatus, tag string) ([]models.Room, error) {
	if status != models.RoomStatusScheduled && status != models.RoomStatusLive {
		status = ""
	}
	rooms, err := s.rooms.ListPublic(ctx, models.RoomFilter{Status: status, Tag: tag, Now: s.now()})
	if err != nil {
		return nil, err
	}
	return s.refreshAll(ctx, rooms)
}

// Update applies field changes requested by the creator. Closed rooms are immutable and
// times may only change before the room starts.
func (s *RoomService) Update(ctx context.Context, roomID int, callerID int, upd RoomUpdate) (models.Room, error) {
	room, err := s.owned(ctx, roomID, callerID, "Not authorized to update this room")
	if err != nil {
		return models.Room{}, err
	}
	if room.Status == models.RoomStatusClosed {
		return models.Room{}, ErrRoomClosed
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" || len([]rune(title)) > maxTitleLength {
			return models.Room{}, ErrValidation.WithMessage("Title is required and must be at most %d characters", maxTitleLength)
		}
		room.Title = title
	}
	if upd.Description != nil {
		if len([]rune(*upd.Description)) > maxDescriptionLength {
			return models.Room{}, ErrValidation.WithMessage("Description must be at most %d characters", maxDescriptionLength)
		}
		room.Description = *upd.Description
	}
	if upd.Tag != nil {
		if !slices.Contains(models.RoomTags, *upd.Tag) {
			return models.Room{}, ErrValidation.WithMessage("Invalid tag %q", *upd.Tag)
		}
		room.Tag = *upd.Tag
	}
	if upd.MaxParticipants != nil {
		if *upd.MaxParticipants <= 0 {
			room.MaxParticipants = nil
		} else {
			capacity := *upd.MaxParticipants
			room.MaxParticipants = &capacity
		}
	}
	if upd.Summary != nil {
		room.Summary = *upd.Summary
	}

	if upd.StartTime != nil || upd.EndTime != nil {
		now := s.now()
		if room.Status == models.RoomStatusLive || room.StartTime.Before(now) {
			return models.Room{}, ErrAlreadyStarted
		}
		start, end := room.StartTime, room.EndTime
		if upd.StartTime != nil {
			start = *upd.StartTime
		}
		if upd.EndTime != nil {
			end = *upd.EndTime
		}
		if !end.After(start) {
			return models.Room{}, ErrInvalidRange.WithMessage("End time must be after start time")
		}
		if start.Before(now) {
			return models.Room{}, ErrInvalidRange.WithMessage("Start time must be in the future")
		}
		room.StartTime, room.EndTime = start, end
		room.Status = models.ResolveStatus(start, end, now)
	}

	return s.save(ctx, room)
}

// Delete removes a room owned by the caller.
func (s *RoomService) Delete(ctx context.Context, roomID int, callerID int) error {
	if _, err := s.owned(ctx, roomID, callerID, "Not authorized"); err != nil {
		return err
	}
	err := s.rooms.DeleteRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	return err
}

// Close ends a live room now, signals every subscriber and notifies the other active
// participants. Closing an already closed room is a no-op.
func (s *RoomService) Close(ctx context.Context, roomID int, callerID int) (models.Room, error) {
	room, err := s.owned(ctx, roomID, callerID, "Not authorized to close this room")
	if err != nil {
		return models.Room{}, err
	}

	switch room.Status {
	case models.RoomStatusClosed:
		return room, nil
	case models.RoomStatusScheduled:
		return models.Room{}, ErrNotLive.WithMessage("Only live rooms can be closed")
	}

	room.Status = models.RoomStatusClosed
	room.EndTime = closedEnd(room.StartTime, s.now())
	room, err = s.save(ctx, room)
	if err != nil {
		return models.Room{}, err
	}

	s.broadcastStatus(ctx, room, models.StatusActionClosed)

	recipients, err := s.participants.ListActiveUserIDs(ctx, room.ID)
	if err != nil {
		log.Printf("rooms: list participants of room %d: %v", room.ID, err)
		return room, nil
	}
	content := fmt.Sprintf("Room %q has been closed by the host.", room.Title)
	for _, userID := range recipients {
		if userID == callerID {
			continue
		}
		s.notifications.notify(ctx, userID, models.NotificationRoomUpdate, content, models.RoomRef{RoomID: room.ID})
	}
	return room, nil
}

// closedEnd places the end one microsecond before now so the inclusive live window no
// longer covers the closing instant. It never moves before start.
func closedEnd(start, now time.Time) time.Time {
	end := now.Truncate(time.Microsecond).Add(-time.Microsecond)
	if !end.After(start) {
		end = start.Add(time.Microsecond)
	}
	return end
}

// Extend pushes the end of a live room back by minutes.
func (s *RoomService) Extend(ctx context.Context, roomID int, callerID int, minutes int) (models.Room, error) {
	if minutes <= 0 || minutes > maxExtensionMinutes {
		return models.Room{}, ErrInvalidRange.WithMessage("Extension time must be between 1 and %d minutes", maxExtensionMinutes)
	}
	room, err := s.owned(ctx, roomID, callerID, "Not authorized to extend this room")
	if err != nil {
		return models.Room{}, err
	}
	if room.Status != models.RoomStatusLive {
		return models.Room{}, ErrNotLive.WithMessage("Only live rooms can be extended")
	}

	room.EndTime = room.EndTime.Add(time.Duration(minutes) * time.Minute)
	room, err = s.save(ctx, room)
	if err != nil {
		return models.Room{}, err
	}
	s.broadcastStatus(ctx, room, models.StatusActionExtended)
	return room, nil
}

// Reschedule moves the room to a new future window. The first reschedule keeps the
// original window, a closed room reopens as scheduled, and every non-creator member
// is notified, including inactive ones.
func (s *RoomService) Reschedule(ctx context.Context, roomID int, callerID int, start, end time.Time) (models.Room, error) {
	now := s.now()
	if start.Before(now) {
		return models.Room{}, ErrInvalidRange.WithMessage("New start time must be in the future")
	}
	if !end.After(start) {
		return models.Room{}, ErrInvalidRange.WithMessage("New end time must be after new start time")
	}

	room, err := s.owned(ctx, roomID, callerID, "Not authorized to reschedule this room")
	if err != nil {
		return models.Room{}, err
	}
	if !room.IsRecurring && room.Status == models.RoomStatusClosed {
		return models.Room{}, ErrNotReschedulable
	}

	if !room.WasRescheduled {
		originalStart, originalEnd := room.StartTime, room.EndTime
		room.OriginalStartTime = &originalStart
		room.OriginalEndTime = &originalEnd
	}
	room.StartTime, room.EndTime = start, end
	room.WasRescheduled = true
	room.Status = models.ResolveStatus(start, end, now)

	room, err = s.save(ctx, room)
	if err != nil {
		return models.Room{}, err
	}
	s.broadcastStatus(ctx, room, models.StatusActionRescheduled)

	members, err := s.participants.ListParticipants(ctx, room.ID)
	if err != nil {
		log.Printf("rooms: list participants of room %d: %v", room.ID, err)
		return room, nil
	}
	content := fmt.Sprintf("Room %q has been rescheduled to %s.", room.Title, start.UTC().Format("01/02/2006 03:04 PM MST"))
	for _, p := range members {
		if p.UserID == callerID {
			continue
		}
		s.notifications.notify(ctx, p.UserID, models.NotificationRoomUpdate, content, models.RoomRef{RoomID: room.ID})
	}
	return room, nil
}

func (s *RoomService) owned(ctx context.Context, roomID int, callerID int, denied string) (models.Room, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if !room.IsCreator(callerID) {
		return models.Room{}, ErrForbidden.WithMessage("%s", denied)
	}
	return room, nil
}

func (s *RoomService) save(ctx context.Context, room models.Room) (models.Room, error) {
	saved, err := s.rooms.UpdateRoom(ctx, room)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Room{}, ErrRoomNotFound
	}
	return saved, err
}

func (s *RoomService) broadcastStatus(ctx context.Context, room models.Room, action models.StatusAction) {
	s.broadcaster.ToRoom(ctx, room.ID, models.Event{
		Type:   models.EventRoomStatusChange,
		RoomID: room.ID,
		Data: models.RoomStatusChange{
			RoomID:    room.ID,
			Status:    room.Status,
			Action:    action,
			StartTime: room.StartTime,
			EndTime:   room.EndTime,
		},
	})
}
