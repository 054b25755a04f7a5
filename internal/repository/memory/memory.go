// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness and cascade rules as the SQL
// schema and is used to exercise services and handlers without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
)

type memberKey struct {
	userID string
	teamID string
}

// Store keeps users, teams and memberships in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	users   map[string]domain.User
	teams   map[string]domain.Team
	members map[memberKey]domain.TeamMember
	fail    error
}

var (
	_ repository.UserRepository = (*Store)(nil)
	_ repository.TeamRepository = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		teams:   make(map[string]domain.Team),
		members: make(map[memberKey]domain.TeamMember),
	}
}

// SetFailure makes every subsequent call return err until cleared with nil.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// CountMembers returns the number of membership rows for a team.
func (s *Store) CountMembers(teamID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.members {
		if key.teamID == teamID {
			n++
		}
	}
	return n
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
		if user.Provider != "" && existing.Provider == user.Provider && existing.ProviderID == user.ProviderID {
			return repository.ErrConflict
		}
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	for _, user := range s.users {
		if user.Email == email {
			u := cloneUser(user)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := cloneUser(user)
	return &u, nil
}

func (s *Store) GetUserByProvider(_ context.Context, provider, providerID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	for _, user := range s.users {
		if provider != "" && user.Provider == provider && user.ProviderID == providerID {
			u := cloneUser(user)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// DeleteUser removes a user and cascades to their memberships and teams.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for teamID, team := range s.teams {
		if team.CreatorID == id {
			s.deleteTeamLocked(teamID)
		}
	}
	for key := range s.members {
		if key.userID == id {
			delete(s.members, key)
		}
	}
}

func (s *Store) CreateTeam(_ context.Context, team *domain.Team, creator *domain.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.users[team.CreatorID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.teams[team.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range s.teams {
		if existing.JoinCode == team.JoinCode {
			return repository.ErrConflict
		}
	}
	s.teams[team.ID] = *team
	s.members[memberKey{userID: creator.UserID, teamID: creator.TeamID}] = *creator
	return nil
}

func (s *Store) GetTeamByJoinCode(_ context.Context, joinCode string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	for _, team := range s.teams {
		if team.JoinCode == joinCode {
			t := team
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) DeleteTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.teams[teamID]; !ok {
		return repository.ErrNotFound
	}
	s.deleteTeamLocked(teamID)
	return nil
}

func (s *Store) deleteTeamLocked(teamID string) {
	delete(s.teams, teamID)
	for key := range s.members {
		if key.teamID == teamID {
			delete(s.members, key)
		}
	}
}

func (s *Store) ListTeamsByUser(_ context.Context, userID string) ([]domain.UserTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	teams := make([]domain.UserTeam, 0)
	for key, member := range s.members {
		if key.userID != userID {
			continue
		}
		team := s.teams[key.teamID]
		teams = append(teams, domain.UserTeam{
			Name:        team.Name,
			Description: team.Description,
			JoinCode:    team.JoinCode,
			CreatedAt:   team.CreatedAt,
			JoinedAt:    member.JoinedAt,
			Role:        member.Role,
		})
	}
	return teams, nil
}

func (s *Store) CreateMember(_ context.Context, member *domain.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.teams[member.TeamID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[member.UserID]; !ok {
		return repository.ErrNotFound
	}
	key := memberKey{userID: member.UserID, teamID: member.TeamID}
	if _, ok := s.members[key]; ok {
		return repository.ErrConflict
	}
	if member.Role == domain.RoleCreator {
		for k, existing := range s.members {
			if k.teamID == member.TeamID && existing.Role == domain.RoleCreator {
				return repository.ErrConflict
			}
		}
	}
	s.members[key] = *member
	return nil
}

func (s *Store) GetMember(_ context.Context, teamID, userID string) (*domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	member, ok := s.members[memberKey{userID: userID, teamID: teamID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

func (s *Store) DeleteMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	key := memberKey{userID: userID, teamID: teamID}
	if _, ok := s.members[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.members, key)
	return nil
}

func (s *Store) ListMembers(_ context.Context, teamID string) ([]domain.MemberProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	members := make([]domain.MemberProfile, 0)
	for key, member := range s.members {
		if key.teamID != teamID {
			continue
		}
		user := s.users[key.userID]
		members = append(members, domain.MemberProfile{
			Name:     user.Name,
			Email:    user.Email,
			Image:    user.Image,
			Role:     member.Role,
			JoinedAt: member.JoinedAt,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func cloneUser(u domain.User) domain.User {
	if u.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return u
}
