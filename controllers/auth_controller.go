package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/middleware"
	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/utils"
)

const sessionDuration = 72 * time.Hour

// AuthController handles account registration, login and OAuth sign-in.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

// Register creates a new student account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"required"`
		Confirm  string `json:"confirm"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-32 characters of letters, digits, '-' or '_'")
		return
	}
	if req.Confirm != "" && req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40003, "passwords do not match")
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		utils.Error(ctx, http.StatusBadRequest, 40004, "password must be 8-72 characters")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         models.RoleStudent,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// The availability check above races with concurrent registration;
		// the unique index is the authority.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already taken")
			return
		}
		utils.Sugar.Errorw("register failed", "username", req.Username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create account")
		return
	}

	a.issueSession(ctx, &user)
}

// Login authenticates with username and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	a.issueSession(ctx, &user)
}

// Logout revokes the current session token and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ""
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		if c, err := ctx.Cookie(middleware.SessionCookieName); err == nil {
			token = c
		}
	}
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "no session")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(sessionDuration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)

	ctx.SetCookie(middleware.SessionCookieName, "", -1, "/", "", config.Get().CookieSecure, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, _ := getUserID(ctx)

	var user models.User
	if err := a.db.Where("id = ?", userID).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40406, "account not found")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile edits the caller's own bio and avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Bio       *string `json:"bio" binding:"omitempty,max=255"`
		AvatarURL *string `json:"avatar_url" binding:"omitempty,url,max=512"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid request payload")
		return
	}

	userID, _ := getUserID(ctx)
	updates := map[string]interface{}{}
	if req.Bio != nil {
		updates["bio"] = utils.SanitizeStrict(*req.Bio)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40007, "nothing to update")
		return
	}

	if err := a.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to update profile")
		return
	}
	utils.Success(ctx, gin.H{"message": "profile updated"})
}

// GetUserPublic returns the public view of any account.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	var user models.User
	if err := a.db.Where("id = ?", ctx.Param("id")).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40406, "account not found")
		return
	}
	utils.Success(ctx, gin.H{"user": gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"role":       user.Role,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"created_at": user.CreatedAt,
	}})
}

// OAuthRedirect returns the GitHub authorization URL with a one-time state.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40008, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	utils.Success(ctx, gin.H{
		"authorization_url": cfg.AuthCodeURL(state),
		"state":             state,
	})
}

// OAuthCallback exchanges the authorization code, links or creates the
// account, and signs it in.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40009, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40008, err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "failed to exchange code")
		return
	}

	info, err := fetchGitHubUser(ctx.Request.Context(), token)
	if err != nil {
		utils.Sugar.Errorw("github user fetch failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to fetch account info")
		return
	}

	user, err := a.findOrCreateOAuthUser(info)
	if err != nil {
		utils.Sugar.Errorw("oauth account persist failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to create account")
		return
	}

	a.issueSession(ctx, user)
}

// issueSession generates a token, sets the session cookie and returns both
// token and account in the response body.
func (a *AuthController) issueSession(ctx *gin.Context, user *models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, sessionDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to generate token")
		return
	}

	ctx.SetCookie(middleware.SessionCookieName, token,
		int(sessionDuration/time.Second), "/", "", config.Get().CookieSecure, true)
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

func (a *AuthController) oauthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, errors.New("github sign-in is not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  cfg.OAuthRedirectBase + "/auth/callback",
		Scopes:       []string{"read:user", "user:email"},
	}, nil
}

type oauthUser struct {
	ID     string
	Login  string
	Email  string
	Avatar string
}

func fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*oauthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api status %d", resp.StatusCode)
	}

	var body struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &oauthUser{
		ID:     fmt.Sprintf("%d", body.ID),
		Login:  body.Login,
		Email:  body.Email,
		Avatar: body.AvatarURL,
	}, nil
}

func (a *AuthController) findOrCreateOAuthUser(info *oauthUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "github", info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.uniqueUsername(info.Login),
		Email:      info.Email,
		Role:       models.RoleStudent,
		Provider:   "github",
		ProviderID: info.ID,
		AvatarURL:  info.Avatar,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// uniqueUsername derives a free username from the provider login.
func (a *AuthController) uniqueUsername(base string) string {
	base = strings.ToLower(strings.TrimSpace(base))
	base = regexp.MustCompile(`[^a-z0-9_-]`).ReplaceAllString(base, "-")
	if len(base) < 3 {
		base = "user-" + base
	}
	if len(base) > 24 {
		base = base[:24]
	}

	candidate := base
	for i := 0; i < 10; i++ {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i+1)
	}
	return base + "-" + uuid.NewString()[:8]
}
