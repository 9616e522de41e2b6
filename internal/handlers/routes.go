package handlers

import "github.com/gin-gonic/gin"

// API bundles the authenticated HTTP handlers.
type API struct {
	Rooms         *RoomHandler
	Invitations   *InvitationHandler
	Messages      *MessageHandler
	Reactions     *ReactionHandler
	Notifications *NotificationHandler
}

// Register mounts every route on r. postLimit guards message and reaction posting.
func (a API) Register(r gin.IRoutes, postLimit gin.HandlerFunc) {
	if postLimit == nil {
		postLimit = func(c *gin.Context) { c.Next() }
	}
	r.POST("/rooms", a.Rooms.CreateRoom)
	r.GET("/rooms/my", a.Rooms.ListMyRooms)
	r.GET("/rooms/participating", a.Rooms.ListParticipating)
	r.GET("/rooms/public", a.Rooms.ListPublic)
	r.GET("/rooms/:room_id", a.Rooms.GetRoom)
	r.PUT("/rooms/:room_id", a.Rooms.UpdateRoom)
	r.DELETE("/rooms/:room_id", a.Rooms.DeleteRoom)
	r.POST("/rooms/:room_id/join", a.Rooms.JoinRoom)
	r.POST("/rooms/:room_id/leave", a.Rooms.LeaveRoom)
	r.PUT("/rooms/:room_id/close", a.Rooms.CloseRoom)
	r.PUT("/rooms/:room_id/extend", a.Rooms.ExtendRoom)
	r.PUT("/rooms/:room_id/reschedule", a.Rooms.RescheduleRoom)

	r.POST("/invitations", a.Invitations.SendInvitation)
	r.GET("/invitations/received", a.Invitations.ListReceived)
	r.GET("/invitations/sent", a.Invitations.ListSent)
	r.GET("/invitations/room/:room_id", a.Invitations.ListForRoom)
	r.PUT("/invitations/:invitation_id", a.Invitations.RespondInvitation)
	r.DELETE("/invitations/:invitation_id", a.Invitations.DeleteInvitation)

	r.POST("/messages", postLimit, a.Messages.PostMessage)
	r.GET("/messages/room/:room_id", a.Messages.GetRoomMessages)
	r.GET("/messages/room/:room_id/after/:timestamp", a.Messages.GetMessagesAfter)
	r.POST("/messages/:message_id/reactions", postLimit, a.Messages.ToggleReaction)
	r.GET("/messages/:message_id/reactions/summary", a.Messages.GetReactionSummary)
	r.PUT("/messages/:message_id/reactions/:reaction_id", a.Messages.UpdateReaction)
	r.DELETE("/messages/:message_id/reactions/:reaction_id", a.Messages.DeleteReaction)

	r.POST("/reactions", postLimit, a.Reactions.PostReaction)
	r.GET("/reactions/room/:room_id", a.Reactions.ListReactions)
	r.GET("/reactions/room/:room_id/after/:timestamp", a.Reactions.GetReactionsAfter)
	r.GET("/reactions/room/:room_id/summary", a.Reactions.GetReactionSummary)

	r.GET("/notifications", a.Notifications.ListNotifications)
	r.PUT("/notifications/read-all", a.Notifications.MarkAllRead)
	r.PUT("/notifications/:notification_id/read", a.Notifications.MarkRead)
	r.DELETE("/notifications/:notification_id", a.Notifications.DeleteNotification)
}
