// Package domain defines the persistence models for users, stories, comments,
// and the AI writing assistant (cached prompts, conversations, messages).
// These types are mapped with GORM and shared across the repository, service,
// and HTTP layers.
package domain

import (
	"time"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account in the credential store. PasswordHash is a bcrypt hash
// and is never serialized.
type User struct {
	ID              string    `json:"id"                          gorm:"type:char(36);primaryKey"`
	Username        string    `json:"username"                    gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	PasswordHash    string    `json:"-"                           gorm:"type:varchar(255);not null"`
	Role            string    `json:"role"                        gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	FirstName       string    `json:"first_name,omitempty"        gorm:"type:varchar(128)"`
	LastName        string    `json:"last_name,omitempty"         gorm:"type:varchar(128)"`
	ProfileImageURL string    `json:"profile_image_url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// DisplayName returns "First Last" when a name is set, otherwise the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Story is a piece of writing owned by its author. Content is plain text with
// newline-delimited paragraphs. Private stories are only visible to the author.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AuthorID: owning user (indexed).
//   - IsPublic: visibility flag; private stories cannot be analyzed or commented on.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Story struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	IsPublic  bool      `json:"is_public"  gorm:"not null;default:false;index:idx_stories_public,priority:1"`
	AuthorID  string    `json:"author_id"  gorm:"type:char(36);not null;index:idx_stories_author"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_stories_public,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `json:"-" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Story.
func (Story) TableName() string { return "stories" }

// Comment is an append-only remark on a public story. AuthorName is
// denormalized at creation time so listings need no join.
type Comment struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	StoryID    string    `json:"story_id"    gorm:"type:char(36);not null;index:idx_comments_story,priority:1"`
	AuthorID   string    `json:"author_id"   gorm:"type:char(36);not null;index"`
	AuthorName string    `json:"author_name" gorm:"type:varchar(128);not null"`
	Content    string    `json:"content"     gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_comments_story,priority:2"`

	// StoryTitle is filled only by the admin moderation listing.
	StoryTitle string `json:"story_title,omitempty" gorm:"->;-:migration"`

	Story Story `json:"-" gorm:"foreignKey:StoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// CachedPrompt maps the SHA-256 digest of a fully assembled prompt to the
// response previously generated for it. PromptHash is unique: two writers
// racing on the same digest cannot create two rows.
type CachedPrompt struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	PromptHash string    `json:"prompt_hash"  gorm:"type:char(64);not null;uniqueIndex:ux_ai_cache_prompt_hash"`
	Prompt     string    `json:"prompt"       gorm:"type:text;not null"`
	Response   string    `json:"response"     gorm:"type:text;not null"`
	UsedCount  int64     `json:"used_count"   gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at" gorm:"index"`
}

// TableName returns the database table name for CachedPrompt.
func (CachedPrompt) TableName() string { return "ai_cache" }

// Conversation is one AI analysis thread about a story. UserID is the story's
// author. UpdatedAt is refreshed on every new message.
type Conversation struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	StoryID       string    `json:"story_id"       gorm:"type:char(36);not null;index:idx_ai_conv_story,priority:1"`
	UserID        string    `json:"user_id"        gorm:"type:char(36);not null;index"`
	DetectedGenre string    `json:"detected_genre" gorm:"type:varchar(32)"`
	Title         string    `json:"title"          gorm:"type:varchar(255);not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     gorm:"index:idx_ai_conv_story,priority:2"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Story Story `json:"-" gorm:"foreignKey:StoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "ai_conversations" }

// Message is a single entry in a conversation: either the user's assembled
// prompt (IsUser, with PromptType) or the AI's response.
type Message struct {
	ID             string    `json:"id"                    gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id"       gorm:"type:char(36);not null;index:idx_ai_msgs_conv,priority:1"`
	IsUser         bool      `json:"is_user"               gorm:"not null"`
	Content        string    `json:"content"               gorm:"type:text;not null"`
	PromptType     *string   `json:"prompt_type,omitempty" gorm:"type:varchar(16);check:prompt_type IS NULL OR prompt_type IN ('grammar','structure','custom')"`
	CreatedAt      time.Time `json:"created_at"            gorm:"index:idx_ai_msgs_conv,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "ai_messages" }
