package domain

import "time"

// TeamRole is the role a user holds within a team.
type TeamRole string

const (
	RoleCreator TeamRole = "CREATOR"
	RoleMember  TeamRole = "MEMBER"
)

// Team represents a group users join with a join code.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JoinCode    string    `json:"joinCode"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	TeamID   string
	UserID   string
	Role     TeamRole
	JoinedAt time.Time
}

// UserTeam is one of a user's memberships together with a team summary.
type UserTeam struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JoinCode    string    `json:"joinCode"`
	CreatedAt   time.Time `json:"createdAt"`
	JoinedAt    time.Time `json:"joinedAt"`
	Role        TeamRole  `json:"role"`
}

// MemberProfile is a membership projected with the member's public profile.
type MemberProfile struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Image    string    `json:"image"`
	Role     TeamRole  `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
