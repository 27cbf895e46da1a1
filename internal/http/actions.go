package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finpro/internal/core"
	"finpro/internal/groq"
	"finpro/internal/log"
	"finpro/internal/tabular"
)

const (
	ActionCheckUser    = "checkUser"
	ActionGetData      = "getData"
	ActionRegisterUser = "registerUser"
	ActionCallGroq     = "callGroq"
	ActionAdd          = "add"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
)

// actionRequest is the union of every POST action's fields; each handler
// reads only the ones it needs.
type actionRequest struct {
	Action      string         `json:"action"`
	Username    string         `json:"username"`
	Password    string         `json:"password"`
	Messages    []groq.Message `json:"messages"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
	Amount      any            `json:"amount"`
	Type        string         `json:"type"`
	Method      string         `json:"method"`
	Card        string         `json:"card"`
	Category    string         `json:"category"`
	RowIndex    int            `json:"rowIndex"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		writeJSON(w, errorBody("method not allowed"))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	if params.Get("action") == ActionCheckUser {
		s.checkUser(w, r, params.Get("username"), params.Get("password"))
		return
	}

	username := params.Get("username")
	if username == "" {
		writeJSON(w, errorBody("username not provided"))
		return
	}
	s.getData(w, r, username)
}

// handlePost is the top-level guard for the mutation path: any failure a
// handler does not convert itself degrades to an error body, never a
// non-200 or an unhandled fault.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			loggerFrom(r.Context()).Error("panic in action handler", log.FieldError, rec)
			writeJSON(w, errorBody("internal error"))
		}
	}()

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errorBody("invalid request body"))
		return
	}

	switch req.Action {
	case ActionRegisterUser:
		s.registerUser(w, r, req.Username, req.Password)
	case ActionCallGroq:
		s.callGroq(w, r, req.Messages)
	case ActionAdd:
		s.addTransaction(w, r, req)
	case ActionUpdate:
		s.updateTransaction(w, r, req)
	case ActionDelete:
		s.deleteTransaction(w, r, req)
	default:
		writeJSON(w, errorBody("invalid action"))
	}
}

func (s *Server) checkUser(w http.ResponseWriter, r *http.Request, username, password string) {
	ok, err := s.users.Check(r.Context(), username, password)
	if err != nil {
		loggerFrom(r.Context()).Error("credential check failed", log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "message": "could not verify credentials"})
		return
	}
	if !ok {
		writeJSON(w, map[string]any{"success": false, "message": "invalid username or password"})
		return
	}
	writeJSON(w, map[string]any{"success": true, "username": username})
}

func (s *Server) getData(w http.ResponseWriter, r *http.Request, username string) {
	records, err := s.txs.ListByUser(r.Context(), username)
	if err != nil {
		loggerFrom(r.Context()).Error("listing transactions failed", log.FieldUsername, username, log.FieldError, err)
		writeJSON(w, errorBody("could not load transactions"))
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		item := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			item[k] = v
		}
		item["_rowIndex"] = rec.RowIndex
		out = append(out, item)
	}
	writeJSON(w, out)
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request, username, password string) {
	if username == "" || password == "" {
		writeJSON(w, map[string]any{"success": false, "message": "username and password are required"})
		return
	}

	// Two concurrent registrations of the same name can both pass this
	// check; the store enforces no uniqueness. Accepted for the expected
	// single-user usage.
	exists, err := s.users.Exists(r.Context(), username)
	if err != nil {
		loggerFrom(r.Context()).Error("registration lookup failed", log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "message": "could not register user"})
		return
	}
	if exists {
		writeJSON(w, map[string]any{"success": false, "message": "username already exists"})
		return
	}

	if err := s.users.Create(r.Context(), username, password); err != nil {
		loggerFrom(r.Context()).Error("registration failed", log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "message": "could not register user"})
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) callGroq(w http.ResponseWriter, r *http.Request, messages []groq.Message) {
	raw, err := s.completer.ChatCompletion(r.Context(), messages)
	if err != nil {
		if errors.Is(err, groq.ErrNotConfigured) {
			writeJSON(w, errorBody("Groq API key not configured"))
			return
		}
		loggerFrom(r.Context()).Error("completion call failed", log.FieldError, err)
		writeJSON(w, errorBody(err.Error()))
		return
	}
	writeRawJSON(w, raw)
}

func transactionFrom(req actionRequest) core.Transaction {
	return core.Transaction{
		Username:    req.Username,
		Date:        req.Date,
		Description: req.Description,
		Amount:      core.CoerceAmount(req.Amount),
		Type:        core.TransactionType(req.Type),
		Method:      core.PaymentMethod(req.Method),
		Card:        req.Card,
		Category:    req.Category,
		RowIndex:    req.RowIndex,
	}
}

func (s *Server) addTransaction(w http.ResponseWriter, r *http.Request, req actionRequest) {
	tx := transactionFrom(req)
	if err := s.txs.Add(r.Context(), tx); err != nil {
		loggerFrom(r.Context()).Error("add failed", log.FieldUsername, tx.Username, log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "error": "could not add transaction"})
		return
	}
	s.publishEvent(r, ActionAdd, tx.Username, 0, tx)
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.RowIndex < 2 {
		writeJSON(w, map[string]any{"success": false, "error": "invalid index"})
		return
	}
	tx := transactionFrom(req)
	if err := s.txs.Update(r.Context(), req.RowIndex, tx); err != nil {
		if errors.Is(err, tabular.ErrRowOutOfRange) {
			writeJSON(w, map[string]any{"success": false, "error": "invalid index"})
			return
		}
		loggerFrom(r.Context()).Error("update failed", log.FieldRowIndex, req.RowIndex, log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "error": "could not update transaction"})
		return
	}
	s.publishEvent(r, ActionUpdate, tx.Username, req.RowIndex, tx)
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.RowIndex < 2 {
		writeJSON(w, map[string]any{"success": false, "error": "invalid index"})
		return
	}
	if err := s.txs.Delete(r.Context(), req.RowIndex); err != nil {
		if errors.Is(err, tabular.ErrRowOutOfRange) {
			writeJSON(w, map[string]any{"success": false, "error": "invalid index"})
			return
		}
		loggerFrom(r.Context()).Error("delete failed", log.FieldRowIndex, req.RowIndex, log.FieldError, err)
		writeJSON(w, map[string]any{"success": false, "error": "could not delete transaction"})
		return
	}
	s.publishEvent(r, ActionDelete, req.Username, req.RowIndex, core.Transaction{})
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) publishEvent(r *http.Request, action, username string, rowIndex int, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	var row []string
	if action != ActionDelete {
		row = []string{
			tx.Username,
			tx.Date,
			tx.Description,
			core.FormatAmount(tx.Amount),
			string(tx.Type),
			string(tx.Method),
			tx.Card,
			tx.Category,
		}
	}
	if err := s.publisher.PublishTransactionEvent(r.Context(), action, username, rowIndex, row); err != nil {
		loggerFrom(r.Context()).Error("event publish failed", log.FieldAction, action, log.FieldError, err)
	}
}
