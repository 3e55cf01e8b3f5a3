package domain

// User roles.
const (
	RoleSeller    = "seller"
	RolePerformer = "performer"
	RoleBoth      = "both"
	RoleAdmin     = "admin"
)

// Task status values.
const (
	TaskOpen   = "open"
	TaskClosed = "closed"
)

// Task moderation status values.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role" enum:"seller,performer,both,admin"`
	About        string `json:"about,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// Profile is the public slice of a User exposed alongside tasks and responses.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"seller,performer,both,admin"`
	About     string `json:"about,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Role: u.Role, About: u.About, AvatarURL: u.AvatarURL}
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Task struct {
	ID               string   `json:"id"`
	OwnerID          string   `json:"owner_id"`
	CategoryID       string   `json:"category_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Marketplace      string   `json:"marketplace,omitempty"`
	Budget           *int64   `json:"budget,omitempty"`
	Status           string   `json:"status" enum:"open,closed"`
	ModerationStatus string   `json:"moderation_status" enum:"pending,approved,rejected"`
	TagIDs           []string `json:"tag_ids,omitempty"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
	UpdatedAt        string   `json:"updated_at" format:"date-time"`
	ClosedAt         *string  `json:"closed_at,omitempty" format:"date-time"`
}

type Response struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	AuthorID     string `json:"author_id"`
	Message      string `json:"message"`
	Price        *int64 `json:"price,omitempty"`
	DeadlineDays *int   `json:"deadline_days,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type Reply struct {
	ID         string `json:"id"`
	ResponseID string `json:"response_id"`
	AuthorID   string `json:"author_id"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Role        string `json:"role,omitempty"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Link        string `json:"link,omitempty"`
	IsRead      bool   `json:"is_read"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// ModerationRecord is one append-only audit entry for a task moderation
// change. ChangedFields is a JSON array of field names; PreviousJSON and
// NewJSON hold snapshots of those fields.
type ModerationRecord struct {
	ID            string `json:"id"`
	TaskID        string `json:"task_id"`
	ChangedFields string `json:"changed_fields"`
	PreviousJSON  string `json:"previous_json,omitempty"`
	NewJSON       string `json:"new_json,omitempty"`
	ChangedBy     string `json:"changed_by"`
	Reason        string `json:"reason,omitempty"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type Ad struct {
	ID        string `json:"id"`
	ImageURL  string `json:"image_url"`
	Link      string `json:"link"`
	Position  int    `json:"position"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Tag struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ValidRole reports whether role is one of the accepted user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSeller, RolePerformer, RoleBoth, RoleAdmin:
		return true
	}
	return false
}
