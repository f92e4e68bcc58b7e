package user

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"chatr/internal/common"
	"chatr/internal/dbmysql"
)

const maxPhotoSize = 5 << 20

// Handler serves the account, contact and profile photo endpoints.
type Handler struct {
	userService UserService
	logger      *zap.Logger
}

func NewHandler(userService UserService, logger *zap.Logger) *Handler {
	return &Handler{userService: userService, logger: logger}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/phone/{phone}", h.GetUserByPhone).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id}/contacts", h.AddContact).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/contacts", h.ListContacts).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/chats", h.ListChats).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/profile-photo", h.UploadPhoto).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/profile-photo", h.DeletePhoto).Methods(http.MethodDelete)
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string          `json:"message"`
	User    dbmysql.Profile `json:"user"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  dbmysql.Profile `json:"user"`
}

type updateRequest struct {
	FullName *string `json:"fullName"`
	About    *string `json:"about"`
}

type addContactRequest struct {
	ContactID string `json:"contactId"`
}

type contactsResponse struct {
	Message  string   `json:"message"`
	Contacts []string `json:"contacts"`
}

type photoResponse struct {
	Message      string `json:"message"`
	ProfilePhoto string `json:"profilePhoto"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userService.RegisterUser(r.Context(), req.FullName, req.Phone, req.Password)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    user.Profile(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	user, token, err := h.userService.LoginUser(r.Context(), req.Phone, req.Password)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user.Profile()})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, profiles(users))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *Handler) GetUserByPhone(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetProfileByPhone(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := common.RequireIdentity(r, id); err != nil {
		common.WriteServiceError(w, err)
		return
	}

	var req updateRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), id, req.FullName, req.About)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user.Profile())
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := common.RequireIdentity(r, id); err != nil {
		common.WriteServiceError(w, err)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{
		Message: "User, their messages, and profile photo deleted successfully",
	})
}

func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := common.RequireIdentity(r, id); err != nil {
		common.WriteServiceError(w, err)
		return
	}

	var req addContactRequest
	if !decode(w, r, &req) {
		return
	}

	contacts, err := h.userService.AddContact(r.Context(), id, req.ContactID)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, contactsResponse{Message: "Contact added successfully", Contacts: contacts})
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListContacts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, profiles(users))
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListChats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, profiles(users))
}

func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := common.RequireIdentity(r, id); err != nil {
		common.WriteServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		common.WriteServiceError(w, fmt.Errorf("%w: invalid multipart form: %v", common.ErrInvalidRequest, err))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		common.WriteServiceError(w, fmt.Errorf("%w: photo is required", common.ErrInvalidRequest))
		return
	}
	defer file.Close()

	filename, err := h.userService.SetProfilePhoto(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	h.logger.Info("profile photo updated", zap.String("user_id", id), zap.String("photo", filename))
	common.WriteJSON(w, http.StatusOK, photoResponse{Message: "Profile photo updated", ProfilePhoto: filename})
}

func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := common.RequireIdentity(r, id); err != nil {
		common.WriteServiceError(w, err)
		return
	}

	if err := h.userService.RemoveProfilePhoto(r.Context(), id); err != nil {
		common.WriteServiceError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Profile photo deleted"})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.WriteServiceError(w, fmt.Errorf("%w: invalid request body", common.ErrInvalidRequest))
		return false
	}
	return true
}

func profiles(users []*dbmysql.User) []dbmysql.Profile {
	out := make([]dbmysql.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}
