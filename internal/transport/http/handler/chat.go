package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"casecounsel/internal/app"
	"casecounsel/internal/retrieval"
	"casecounsel/internal/transport/http/response"
)

type ChatHandler struct {
	chatService    *app.ChatService
	maxUploadBytes int64
}

type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	SessionID   string `json:"session_id"`
	TopK        int    `json:"top_k" binding:"omitempty,gte=1"`
	UserDocText string `json:"user_doc_text"`
}

func NewChatHandler(chatService *app.ChatService, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{chatService: chatService, maxUploadBytes: maxUploadBytes}
}

// Chat answers one question. The request is either a JSON body or, when a
// document accompanies the question, multipart form data with a user_pdf
// file part.
func (h *ChatHandler) Chat(c *gin.Context) {
	input, ok := h.bindChatInput(c)
	if !ok {
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConflictingContextInputs):
			response.Error(c, http.StatusBadRequest, response.CodeConflictingInputs, err.Error())
		case errors.Is(err, retrieval.ErrUnsupportedUpload):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedUpload, err.Error())
		case errors.Is(err, app.ErrModelUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "language model unavailable, try again later")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) bindChatInput(c *gin.Context) (app.ChatInput, bool) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.bindMultipart(c)
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return app.ChatInput{}, false
	}
	return app.ChatInput{
		SessionID:   req.SessionID,
		Message:     req.Message,
		TopK:        req.TopK,
		UserDocText: req.UserDocText,
	}, true
}

func (h *ChatHandler) bindMultipart(c *gin.Context) (app.ChatInput, bool) {
	input := app.ChatInput{
		SessionID:   c.PostForm("session_id"),
		Message:     c.PostForm("message"),
		UserDocText: c.PostForm("user_doc_text"),
	}
	if raw := c.PostForm("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid top_k")
			return app.ChatInput{}, false
		}
		input.TopK = parsed
	}

	fileHeader, err := c.FormFile("user_pdf")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return app.ChatInput{}, false
	}
	if fileHeader != nil {
		if fileHeader.Size > h.maxUploadBytes {
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedUpload, "uploaded document exceeds the size limit")
			return app.ChatInput{}, false
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded document failed")
			return app.ChatInput{}, false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded document failed")
			return app.ChatInput{}, false
		}
		input.UploadFilename = fileHeader.Filename
		input.UploadData = data
	}

	return input, true
}
