package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

type pair struct{ a, b int }

// Store is an in-memory implementation of every repository interface. It enforces the
// same uniqueness and cascade rules as the SQL schema.
type Store struct {
	mu  sync.Mutex
	Now func() time.Time

	seq              int
	rooms            map[int]models.Room
	participants     map[pair]models.Participant
	invitations      map[int]models.Invitation
	invitationByPair map[pair]int
	messages         map[int]models.Message
	messageReactions map[int]models.MessageReaction
	reactionByPair   map[pair]int
	roomReactions    map[int]models.RoomReaction
	notifications    map[int]models.Notification
}

var (
	_ repositories.RoomRepository         = (*Store)(nil)
	_ repositories.ParticipantRepository  = (*Store)(nil)
	_ repositories.InvitationRepository   = (*Store)(nil)
	_ repositories.MessageRepository      = (*Store)(nil)
	_ repositories.ReactionRepository     = (*Store)(nil)
	_ repositories.NotificationRepository = (*Store)(nil)
)

// NewStore returns an empty Store whose timestamps come from now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		Now:              now,
		rooms:            make(map[int]models.Room),
		participants:     make(map[pair]models.Participant),
		invitations:      make(map[int]models.Invitation),
		invitationByPair: make(map[pair]int),
		messages:         make(map[int]models.Message),
		messageReactions: make(map[int]models.MessageReaction),
		reactionByPair:   make(map[pair]int),
		roomReactions:    make(map[int]models.RoomReaction),
		notifications:    make(map[int]models.Notification),
	}
}

func (s *Store) nextID() int {
	s.seq++
	return s.seq
}

// rooms

func (s *Store) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.ID = s.nextID()
	room.CreatedAt = s.Now()
	room.UpdatedAt = room.CreatedAt
	s.rooms[room.ID] = room
	return room, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, repositories.ErrRoomNotFound
	}
	return room, nil
}

func (s *Store) UpdateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rooms[room.ID]
	if !ok {
		return models.Room{}, repositories.ErrRoomNotFound
	}
	room.CreatorID = existing.CreatorID
	room.CreatedAt = existing.CreatedAt
	room.UpdatedAt = s.Now()
	s.rooms[room.ID] = room
	return room, nil
}

func (s *Store) UpdateStatus(ctx context.Context, roomID int, status models.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	room.Status = status
	room.UpdatedAt = s.Now()
	s.rooms[roomID] = room
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return repositories.ErrRoomNotFound
	}
	delete(s.rooms, roomID)
	for key := range s.participants {
		if key.a == roomID {
			delete(s.participants, key)
		}
	}
	for key, id := range s.invitationByPair {
		if key.a == roomID {
			delete(s.invitationByPair, key)
			delete(s.invitations, id)
		}
	}
	for id, msg := range s.messages {
		if msg.RoomID != roomID {
			continue
		}
		delete(s.messages, id)
		for key, rid := range s.reactionByPair {
			if key.a == id {
				delete(s.reactionByPair, key)
				delete(s.messageReactions, rid)
			}
		}
	}
	for id, r := range s.roomReactions {
		if r.RoomID == roomID {
			delete(s.roomReactions, id)
		}
	}
	return nil
}

func (s *Store) ListByCreator(ctx context.Context, userID int) ([]models.Room, error) {
	return s.selectRooms(func(r models.Room) bool { return r.CreatorID == userID }, true), nil
}

func (s *Store) ListParticipating(ctx context.Context, userID int) ([]models.Room, error) {
	s.mu.Lock()
	member := make(map[int]bool)
	for key := range s.participants {
		if key.b == userID {
			member[key.a] = true
		}
	}
	s.mu.Unlock()
	return s.selectRooms(func(r models.Room) bool { return member[r.ID] && r.CreatorID != userID }, true), nil
}

func (s *Store) ListPublic(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	now := filter.Now
	return s.selectRooms(func(r models.Room) bool {
		if r.Visibility != models.VisibilityPublic || r.EndTime.Before(now) {
			return false
		}
		if filter.Tag != "" && r.Tag != filter.Tag {
			return false
		}
		switch filter.Status {
		case models.RoomStatusScheduled:
			return r.StartTime.After(now)
		case models.RoomStatusLive:
			return !r.StartTime.After(now)
		}
		return true
	}, false), nil
}

func (s *Store) ListStale(ctx context.Context, now time.Time) ([]models.Room, error) {
	return s.selectRooms(func(r models.Room) bool { return r.ResolveStatus(now) != r.Status }, false), nil
}

func (s *Store) selectRooms(keep func(models.Room) bool, newestFirst bool) []models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Room
	for _, r := range s.rooms {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// participants

func (s *Store) GetParticipant(ctx context.Context, roomID int, userID int) (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[pair{roomID, userID}]
	if !ok {
		return models.Participant{}, repositories.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) Activate(ctx context.Context, roomID int, userID int, at time.Time) (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{roomID, userID}
	p, ok := s.participants[key]
	if !ok {
		p = models.Participant{ID: s.nextID(), RoomID: roomID, UserID: userID}
	}
	joined := at
	p.Active = true
	p.JoinedAt = &joined
	p.LeftAt = nil
	s.participants[key] = p
	return p, nil
}

func (s *Store) EnsureParticipant(ctx context.Context, roomID int, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{roomID, userID}
	if _, ok := s.participants[key]; !ok {
		s.participants[key] = models.Participant{ID: s.nextID(), RoomID: roomID, UserID: userID}
	}
	return nil
}

func (s *Store) Deactivate(ctx context.Context, roomID int, userID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{roomID, userID}
	p, ok := s.participants[key]
	if !ok || !p.Active {
		return repositories.ErrParticipantNotFound
	}
	left := at
	p.Active = false
	p.LeftAt = &left
	s.participants[key] = p
	return nil
}

func (s *Store) CountActive(ctx context.Context, roomID int) (int, error) {
	ids, _ := s.ListActiveUserIDs(ctx, roomID)
	return len(ids), nil
}

func (s *Store) ListActiveUserIDs(ctx context.Context, roomID int) ([]int, error) {
	var ids []int
	for _, p := range s.roomParticipants(roomID) {
		if p.Active {
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error) {
	return s.roomParticipants(roomID), nil
}

func (s *Store) roomParticipants(roomID int) []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Participant
	for key, p := range s.participants {
		if key.a == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// invitations

func (s *Store) UpsertPending(ctx context.Context, roomID int, inviterID int, inviteeID int) (models.Invitation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	key := pair{roomID, inviteeID}
	if id, ok := s.invitationByPair[key]; ok {
		inv := s.invitations[id]
		if inv.Status == models.InvitationPending {
			return models.Invitation{}, false, repositories.ErrInvitationPending
		}
		inv.Status = models.InvitationPending
		inv.InviterID = inviterID
		inv.UpdatedAt = now
		s.invitations[id] = inv
		return inv, false, nil
	}
	inv := models.Invitation{
		ID:        s.nextID(),
		RoomID:    roomID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    models.InvitationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.invitations[inv.ID] = inv
	s.invitationByPair[key] = inv.ID
	return inv, true, nil
}

func (s *Store) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.Invitation{}, repositories.ErrInvitationNotFound
	}
	return inv, nil
}

func (s *Store) FindInvitation(ctx context.Context, roomID int, inviteeID int) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.invitationByPair[pair{roomID, inviteeID}]
	if !ok {
		return models.Invitation{}, repositories.ErrInvitationNotFound
	}
	return s.invitations[id], nil
}

func (s *Store) Respond(ctx context.Context, invitationID int, status models.InvitationStatus) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.Invitation{}, repositories.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationPending {
		return models.Invitation{}, repositories.ErrInvitationNotPending
	}
	inv.Status = status
	inv.UpdatedAt = s.Now()
	s.invitations[invitationID] = inv
	return inv, nil
}

func (s *Store) DeleteInvitation(ctx context.Context, invitationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invitationID]
	if !ok {
		return repositories.ErrInvitationNotFound
	}
	delete(s.invitations, invitationID)
	delete(s.invitationByPair, pair{inv.RoomID, inv.InviteeID})
	return nil
}

func (s *Store) ListReceived(ctx context.Context, userID int) ([]models.InvitationView, error) {
	return s.invitationViews(func(inv models.Invitation) bool { return inv.InviteeID == userID }), nil
}

func (s *Store) ListSent(ctx context.Context, userID int) ([]models.InvitationView, error) {
	return s.invitationViews(func(inv models.Invitation) bool { return inv.InviterID == userID }), nil
}

func (s *Store) ListByRoom(ctx context.Context, roomID int) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, v := range s.invitationViews(func(inv models.Invitation) bool { return inv.RoomID == roomID }) {
		out = append(out, v.Invitation)
	}
	return out, nil
}

func (s *Store) invitationViews(keep func(models.Invitation) bool) []models.InvitationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InvitationView
	for _, inv := range s.invitations {
		if !keep(inv) {
			continue
		}
		room := s.rooms[inv.RoomID]
		out = append(out, models.InvitationView{
			Invitation:    inv,
			RoomTitle:     room.Title,
			RoomStartTime: room.StartTime,
			RoomEndTime:   room.EndTime,
			RoomStatus:    room.Status,
			RoomTag:       room.Tag,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// messages

func (s *Store) CreateMessage(ctx context.Context, roomID int, userID int, content string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return models.Message{}, repositories.ErrRoomNotFound
	}
	msg := models.Message{ID: s.nextID(), RoomID: roomID, UserID: userID, Content: content, CreatedAt: s.Now()}
	s.messages[msg.ID] = msg
	msg.Reactions = []models.MessageReaction{}
	return msg, nil
}

func (s *Store) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	msg.Reactions = s.reactionsOf(messageID)
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID int, limit int) ([]models.Message, error) {
	msgs := s.roomMessages(func(m models.Message) bool { return m.RoomID == roomID })
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *Store) ListMessagesAfter(ctx context.Context, roomID int, after time.Time) ([]models.Message, error) {
	return s.roomMessages(func(m models.Message) bool { return m.RoomID == roomID && m.CreatedAt.After(after) }), nil
}

func (s *Store) roomMessages(keep func(models.Message) bool) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if keep(m) {
			m.Reactions = s.reactionsOf(m.ID)
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) reactionsOf(messageID int) []models.MessageReaction {
	out := []models.MessageReaction{}
	for _, r := range s.messageReactions {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (models.ReactionChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return "", repositories.ErrMessageNotFound
	}
	key := pair{messageID, userID}
	if id, ok := s.reactionByPair[key]; ok {
		r := s.messageReactions[id]
		if r.Emoji == emoji {
			delete(s.messageReactions, id)
			delete(s.reactionByPair, key)
			return models.ReactionRemoved, nil
		}
		r.Emoji = emoji
		r.CreatedAt = s.Now()
		s.messageReactions[id] = r
		return models.ReactionUpdated, nil
	}
	r := models.MessageReaction{ID: s.nextID(), MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: s.Now()}
	s.messageReactions[r.ID] = r
	s.reactionByPair[key] = r.ID
	return models.ReactionAdded, nil
}

func (s *Store) GetReaction(ctx context.Context, reactionID int) (models.MessageReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.messageReactions[reactionID]
	if !ok {
		return models.MessageReaction{}, repositories.ErrReactionNotFound
	}
	return r, nil
}

func (s *Store) UpdateReaction(ctx context.Context, reactionID int, emoji string) (models.MessageReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.messageReactions[reactionID]
	if !ok {
		return models.MessageReaction{}, repositories.ErrReactionNotFound
	}
	r.Emoji = emoji
	r.CreatedAt = s.Now()
	s.messageReactions[reactionID] = r
	return r, nil
}

func (s *Store) DeleteReaction(ctx context.Context, reactionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.messageReactions[reactionID]
	if !ok {
		return repositories.ErrReactionNotFound
	}
	delete(s.messageReactions, reactionID)
	delete(s.reactionByPair, pair{r.MessageID, r.UserID})
	return nil
}

func (s *Store) ReactionSummary(ctx context.Context, messageID int) ([]models.EmojiCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var emojis []string
	for _, r := range s.messageReactions {
		if r.MessageID == messageID {
			emojis = append(emojis, r.Emoji)
		}
	}
	return countEmojis(emojis), nil
}

// room reactions

func (s *Store) CreateReaction(ctx context.Context, roomID int, userID int, emoji string) (models.RoomReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return models.RoomReaction{}, repositories.ErrRoomNotFound
	}
	r := models.RoomReaction{ID: s.nextID(), RoomID: roomID, UserID: userID, Emoji: emoji, CreatedAt: s.Now()}
	s.roomReactions[r.ID] = r
	return r, nil
}

func (s *Store) ListReactions(ctx context.Context, roomID int, limit int, before time.Time) ([]models.RoomReaction, error) {
	list := s.selectRoomReactions(func(r models.RoomReaction) bool { return r.RoomID == roomID && r.CreatedAt.Before(before) })
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *Store) ListReactionsAfter(ctx context.Context, roomID int, after time.Time) ([]models.RoomReaction, error) {
	return s.selectRoomReactions(func(r models.RoomReaction) bool { return r.RoomID == roomID && r.CreatedAt.After(after) }), nil
}

func (s *Store) RoomSummary(ctx context.Context, roomID int) ([]models.EmojiCount, error) {
	var emojis []string
	for _, r := range s.selectRoomReactions(func(r models.RoomReaction) bool { return r.RoomID == roomID }) {
		emojis = append(emojis, r.Emoji)
	}
	return countEmojis(emojis), nil
}

func (s *Store) selectRoomReactions(keep func(models.RoomReaction) bool) []models.RoomReaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RoomReaction
	for _, r := range s.roomReactions {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func countEmojis(emojis []string) []models.EmojiCount {
	counts := make(map[string]int)
	for _, e := range emojis {
		counts[e]++
	}
	var out []models.EmojiCount
	for e, n := range counts {
		out = append(out, models.EmojiCount{Emoji: e, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Emoji < out[j].Emoji
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// notifications

func (s *Store) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	n.Read = false
	n.CreatedAt = s.Now()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, notificationID int) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return models.Notification{}, repositories.ErrNotificationNotFound
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID int, filter models.NotificationFilter) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (filter.Read != nil && n.Read != *filter.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Skip >= len(out) {
		return []models.Notification{}, nil
	}
	out = out[filter.Skip:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkRead(ctx context.Context, notificationID int) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return models.Notification{}, repositories.ErrNotificationNotFound
	}
	n.Read = true
	s.notifications[notificationID] = n
	return n, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(ctx context.Context, notificationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[notificationID]; !ok {
		return repositories.ErrNotificationNotFound
	}
	delete(s.notifications, notificationID)
	return nil
}
