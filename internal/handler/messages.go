package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/auth"
	"github.com/lmarchetti/sidechat/internal/database"
	"github.com/lmarchetti/sidechat/internal/model"
	"github.com/lmarchetti/sidechat/internal/objstore"
)

// MessageStore is the slice of the database layer the message handlers
// need.
type MessageStore interface {
	CreateMessage(ctx context.Context, p database.CreateMessageParams) (model.Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (model.Message, error)
	ListMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]model.Message, error)
	UpdateMessage(ctx context.Context, id uuid.UUID, text, image string) (model.Message, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) error
}

// MessageNotifier pushes lifecycle events to the peer once the write
// is durable.
type MessageNotifier interface {
	MessageCreated(m model.Message)
	MessageUpdated(m model.Message)
	MessageDeleted(callerID uuid.UUID, m model.Message)
}

// Messages are sanitized before they hit the database to prevent XSS.
var sanitize = bluemonday.StrictPolicy()

// GetMessages loads the full conversation between the caller and the
// user in the path.
func GetMessages(db MessageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		peerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, apperr.InvalidArg("invalid user id"))
			return
		}

		messages, err := db.ListMessagesBetween(ctx, userID, peerID)
		if err != nil {
			respondError(w, err)
			return
		}
		if messages == nil {
			messages = []model.Message{}
		}
		respondJSON(w, http.StatusOK, messages)
	}
}

// SendMessage persists a new message and then notifies the receiver if
// online. The caller always gets the persisted record back regardless
// of delivery outcome.
func SendMessage(db MessageStore, notifier MessageNotifier, media objstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		senderID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		receiverID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, apperr.InvalidArg("invalid receiver id"))
			return
		}

		var req struct {
			Text  string `json:"text"`
			Image string `json:"image"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if req.Text == "" && req.Image == "" {
			respondError(w, apperr.InvalidArg("message text or image is required"))
			return
		}

		imageURL := ""
		if req.Image != "" {
			data, contentType, err := objstore.DecodeDataURL(req.Image)
			if err != nil {
				respondError(w, err)
				return
			}
			imageURL, err = media.Put(ctx, uuid.NewString(), data, contentType)
			if err != nil {
				respondError(w, err)
				return
			}
		}

		message, err := db.CreateMessage(ctx, database.CreateMessageParams{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Text:       sanitize.Sanitize(req.Text),
			Image:      imageURL,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			respondError(w, err)
			return
		}

		// Persist-then-notify: the receiver can always fetch what the
		// event announces.
		notifier.MessageCreated(message)

		respondJSON(w, http.StatusCreated, message)
	}
}

// UpdateMessage edits a message. Only the original sender may edit;
// the receiver learns about it over its realtime channel.
func UpdateMessage(db MessageStore, notifier MessageNotifier, media objstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
		if err != nil {
			respondError(w, apperr.InvalidArg("invalid message id"))
			return
		}

		var req struct {
			Text  string `json:"text"`
			Image string `json:"image"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		message, err := db.GetMessageByID(ctx, messageID)
		if err != nil {
			respondError(w, err)
			return
		}
		// Same answer for a foreign message as for a missing one, so
		// ids can't be probed.
		if message.SenderID != userID {
			respondError(w, apperr.NotFound("Message not found or unauthorized"))
			return
		}

		imageURL := message.Image
		if req.Image != "" {
			data, contentType, err := objstore.DecodeDataURL(req.Image)
			if err != nil {
				respondError(w, err)
				return
			}

			if message.Image != "" {
				if err := media.Delete(ctx, message.Image); err != nil {
					log.Printf("failed to delete old message image: %v", err)
				}
			}

			imageURL, err = media.Put(ctx, uuid.NewString(), data, contentType)
			if err != nil {
				respondError(w, err)
				return
			}
		}

		updated, err := db.UpdateMessage(ctx, messageID, sanitize.Sanitize(req.Text), imageURL)
		if err != nil {
			respondError(w, err)
			return
		}

		notifier.MessageUpdated(updated)

		respondJSON(w, http.StatusOK, updated)
	}
}

// DeleteMessage removes a message. Sender or receiver may delete; the
// other party gets a messageDeleted event with the id only.
func DeleteMessage(db MessageStore, notifier MessageNotifier, media objstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			respondError(w, apperr.Unauthorized("not authorized"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
		if err != nil {
			respondError(w, apperr.InvalidArg("invalid message id"))
			return
		}

		message, err := db.GetMessageByID(ctx, messageID)
		if err != nil {
			respondError(w, err)
			return
		}
		if message.SenderID != userID && message.ReceiverID != userID {
			respondError(w, apperr.NotFound("Message not found or unauthorized"))
			return
		}

		if message.Image != "" {
			if err := media.Delete(ctx, message.Image); err != nil {
				log.Printf("failed to delete message image: %v", err)
			}
		}

		if err := db.DeleteMessage(ctx, messageID); err != nil {
			respondError(w, err)
			return
		}

		notifier.MessageDeleted(userID, message)

		respondJSON(w, http.StatusOK, map[string]string{"message": "Message deleted successfully"})
	}
}
