package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"capitalapi/internal/apperr"
	"capitalapi/internal/models"
	"capitalapi/internal/storage"
)

var (
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	Rdb        *redis.Client // shared with middleware
)

func init() {
	// Generate RSA keys for demo (in production, load from files)
	var err error
	PrivateKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	PublicKey = &PrivateKey.PublicKey
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(email, password string) error {
	if email == "" || password == "" {
		return apperr.Validation("email", "email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("email", "email format is invalid")
	}
	if utf8.RuneCountInString(email) > 350 {
		return apperr.Validation("email", "email must not exceed 350 characters")
	}
	if len(password) < 8 {
		return apperr.Validation("password", "password must be at least 8 characters")
	}
	return nil
}

func Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateRegistration(req.Email, req.Password); err != nil {
		SendAppError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := models.User{
		Email:        NormalizeEmail(req.Email),
		PasswordHash: string(hashed),
	}
	if err := Store.Users().Insert(r.Context(), &user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			SendAppError(w, apperr.Conflict("email is already in use"))
			return
		}
		SendAppError(w, err)
		return
	}

	accessToken, refreshToken, err := generateTokens(user.ID)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error generating tokens")
		return
	}
	setRefreshCookie(w, refreshToken)

	SendSuccess(w, http.StatusCreated, "User registered successfully", AuthResponse{
		User:        user,
		AccessToken: accessToken,
	})
}

func Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		SendAppError(w, apperr.Validation("email", "email and password are required"))
		return
	}

	user, err := Store.Users().ByEmail(r.Context(), NormalizeEmail(req.Email))
	if err != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		SendError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, refreshToken, err := generateTokens(user.ID)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error generating tokens")
		return
	}
	setRefreshCookie(w, refreshToken)

	SendSuccess(w, http.StatusOK, "Login successful", AuthResponse{
		User:        *user,
		AccessToken: accessToken,
	})
}

func setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		HttpOnly: true,
		Secure:   false, // set to true behind HTTPS
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
	})
}

func parseRSAToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return PublicKey, nil
	})
}

func RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		SendError(w, http.StatusUnauthorized, "No refresh token")
		return
	}

	token, err := parseRSAToken(cookie.Value)
	if err != nil || !token.Valid {
		SendError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		SendError(w, http.StatusUnauthorized, "Invalid token claims")
		return
	}
	jti, ok := claims["jti"].(string)
	if !ok {
		SendError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		SendError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	userID := int(userIDFloat)

	// The refresh JTI must still be live in Redis.
	val, err := Rdb.Get(context.Background(), fmt.Sprintf("refresh_token:%s", jti)).Result()
	if err != nil || val != fmt.Sprintf("%d", userID) {
		SendError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// Blacklist the access token that was paired with this refresh
	// token, then rotate.
	oldAccessJti, err := Rdb.Get(context.Background(), fmt.Sprintf("refresh_to_access:%s", jti)).Result()
	if err == nil && oldAccessJti != "" {
		Rdb.Set(context.Background(), fmt.Sprintf("blacklist:access_token:%s", oldAccessJti), "1", 15*time.Minute)
	}
	Rdb.Del(context.Background(), fmt.Sprintf("refresh_token:%s", jti))
	Rdb.Del(context.Background(), fmt.Sprintf("refresh_to_access:%s", jti))

	accessToken, refreshToken, err := generateTokens(userID)
	if err != nil {
		SendError(w, http.StatusInternalServerError, "Error generating tokens")
		return
	}
	setRefreshCookie(w, refreshToken)

	SendSuccess(w, http.StatusOK, "Token refreshed successfully", map[string]string{"access_token": accessToken})
}

func generateTokens(userID int) (string, string, error) {
	accessJti := uuid.New().String()
	accessClaims := jwt.MapClaims{
		"user_id": userID,
		"jti":     accessJti,
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}
	accessTokenString, err := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims).SignedString(PrivateKey)
	if err != nil {
		return "", "", err
	}
	err = Rdb.Set(context.Background(), fmt.Sprintf("access_token:%s", accessJti), fmt.Sprintf("%d", userID), 15*time.Minute).Err()
	if err != nil {
		return "", "", err
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"user_id": userID,
		"jti":     refreshJti,
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	refreshTokenString, err := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims).SignedString(PrivateKey)
	if err != nil {
		return "", "", err
	}
	err = Rdb.Set(context.Background(), fmt.Sprintf("refresh_token:%s", refreshJti), fmt.Sprintf("%d", userID), 7*24*time.Hour).Err()
	if err != nil {
		return "", "", err
	}
	// Pair the refresh JTI with its access JTI so rotation can
	// blacklist the old access token.
	err = Rdb.Set(context.Background(), fmt.Sprintf("refresh_to_access:%s", refreshJti), accessJti, 7*24*time.Hour).Err()
	if err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func Logout(w http.ResponseWriter, r *http.Request) {
	// Blacklist the presented access token for its remaining lifetime.
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if token, err := parseRSAToken(tokenString); err == nil && token.Valid {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if jti, ok := claims["jti"].(string); ok {
					if exp, ok := claims["exp"].(float64); ok {
						remaining := time.Until(time.Unix(int64(exp), 0))
						if remaining > 0 {
							Rdb.Set(context.Background(), fmt.Sprintf("blacklist:access_token:%s", jti), "1", remaining)
						}
					}
				}
			}
		}
	}

	// Revoke the refresh token if the cookie is present.
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		if token, err := parseRSAToken(cookie.Value); err == nil && token.Valid {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if jti, ok := claims["jti"].(string); ok {
					Rdb.Del(context.Background(), fmt.Sprintf("refresh_token:%s", jti))
				}
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		HttpOnly: true,
		Secure:   false,
		Path:     "/",
		MaxAge:   -1,
	})

	SendSuccessNoData(w, http.StatusOK, "Logout successful")
}
