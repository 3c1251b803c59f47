package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"telefonia-inventory-api/internal/auth"
	"telefonia-inventory-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, password_hash, first_name, last_name, roles, is_active,
	       created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	var firstName, lastName sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &firstName, &lastName,
		&roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLoginAt,
	); err != nil {
		return err
	}
	if firstName.Valid {
		u.FirstName = &firstName.String
	}
	if lastName.Valid {
		u.LastName = &lastName.String
	}
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	u.Roles = roles
	return nil
}

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s FROM users WHERE email = $1 AND is_active = true`, userColumns),
		req.Email), &user)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		return
	}

	if _, err := s.DB.ExecContext(r.Context(), `UPDATE users SET last_login_at = now() WHERE id = $1`, user.ID); err != nil {
		// Not worth failing the login over.
		s.Log.WithError(err).Warn("failed to update last_login_at")
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.Roles)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Redacted(),
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	sqlStr := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() as total_count FROM users`, userColumns)
	args := []interface{}{}
	if params.q != "" {
		sqlStr += ` WHERE email ILIKE $1`
		args = append(args, "%"+params.q+"%")
	}
	sqlStr += buildOrderBy(params.sort, map[string]string{"id": "id", "email": "email", "created_at": "created_at"})
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	users := []models.User{}
	var totalCount int
	for rows.Next() {
		var u models.User
		var firstName, lastName sql.NullString
		var lastLoginAt sql.NullTime
		var roles pq.StringArray
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &firstName, &lastName,
			&roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLoginAt, &totalCount,
		); err != nil {
			writeInternalError(w, err)
			return
		}
		if firstName.Valid {
			u.FirstName = &firstName.String
		}
		if lastName.Valid {
			u.LastName = &lastName.String
		}
		if lastLoginAt.Valid {
			u.LastLoginAt = &lastLoginAt.Time
		}
		u.Roles = roles
		users = append(users, u.Redacted())
	}

	sendListResponse(w, users, totalCount)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var u models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id), &u)
	if err == sql.ErrNoRows {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if !checkRequest(w, &req) {
		return
	}
	if !models.ValidateRoles(req.Roles) {
		writeValidationError(w, "invalid roles provided", req.Roles)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	var u models.User
	err = scanUser(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, roles, is_active)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, true FROM users
		RETURNING %s`, userColumns),
		strings.ToLower(req.Email), string(hashedPassword), req.FirstName, req.LastName,
		pq.StringArray(req.Roles)), &u)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, CodeConflict, "email already registered", nil)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Redacted())
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if len(req.Roles) > 0 && !models.ValidateRoles(req.Roles) {
		writeValidationError(w, "invalid roles provided", req.Roles)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 4)
	if req.FirstName != nil {
		sets = append(sets, set{"first_name = $%d", nullIfEmpty(*req.FirstName)})
	}
	if req.LastName != nil {
		sets = append(sets, set{"last_name = $%d", nullIfEmpty(*req.LastName)})
	}
	if len(req.Roles) > 0 {
		sets = append(sets, set{"roles = $%d", pq.StringArray(req.Roles)})
	}
	if req.IsActive != nil {
		sets = append(sets, set{"is_active = $%d", *req.IsActive})
	}
	if len(sets) == 0 {
		writeValidationError(w, "no fields to update", nil)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE users SET updated_at = now()"
	for _, sset := range sets {
		sqlStr += ", " + fmt.Sprintf(sset.sql, len(args)+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, userColumns)
	args = append(args, id)

	var u models.User
	if err := scanUser(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &u); err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		writeNotFound(w)
		return
	}
	writeDeleteSuccess(w)
}

// getUserProfile returns the authenticated user's record.
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var u models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), userID), &u)
	if err == sql.ErrNoRows {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

func (s *Server) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if req.FirstName == nil && req.LastName == nil {
		writeValidationError(w, "no fields to update", nil)
		return
	}

	var u models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		UPDATE users SET
			first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			updated_at = now()
		WHERE id = $3
		RETURNING %s`, userColumns),
		req.FirstName, req.LastName, userID), &u)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	var currentHash string
	err := s.DB.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&currentHash)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect", nil)
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if _, err := s.DB.ExecContext(r.Context(),
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		string(newHash), userID); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
