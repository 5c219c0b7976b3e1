package mockapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/crypto/bcrypt"
)

const msgAccessDenied = "Access denied"

type userRecord struct {
	user         cloudbalance.User
	passwordHash []byte
}

type sessionRecord struct {
	token   string
	userID  int64
	active  bool
	expires time.Time
	// originalAdminToken links an impersonation session to the session of the
	// administrator who started it.
	originalAdminToken string
}

type resetTokenRecord struct {
	userID  int64
	expires time.Time
}

// principal is the authenticated caller of a request.
type principal struct {
	user  cloudbalance.User
	token string
	// impersonating is true if the caller's session is an impersonation
	// session.
	impersonating bool
}

// Service is the in-memory backend behind the mock API server. It is safe for
// concurrent use.
type Service struct {
	config Config
	now    func() time.Time

	mu            sync.Mutex
	users         map[int64]*userRecord
	nextUserID    int64
	sessions      map[string]*sessionRecord
	resetTokens   map[string]resetTokenRecord
	outbox        map[string]string
	accounts      map[int64]*cloudbalance.CloudAccount
	nextAccountID int64
	// assignments maps user IDs to the IDs of the accounts assigned to them.
	assignments map[int64]map[int64]struct{}
	costRecords []CostRecord
	resources   map[int64]awsResources
}

// NewService returns a Service seeded with an administrator and, if the
// Config asks for it, demo data.
func NewService(config Config) (*Service, error) {
	s := &Service{
		config:      config,
		now:         time.Now,
		users:       map[int64]*userRecord{},
		sessions:    map[string]*sessionRecord{},
		resetTokens: map[string]resetTokenRecord{},
		outbox:      map[string]string{},
		accounts:    map[int64]*cloudbalance.CloudAccount{},
		assignments: map[int64]map[int64]struct{}{},
		resources:   map[int64]awsResources{},
	}
	if _, err := s.CreateUser(
		cloudbalance.UserCreate{
			Username:  config.SeedAdminUsername,
			Password:  config.SeedAdminPassword,
			FirstName: "System",
			LastName:  "Administrator",
			Email:     config.SeedAdminUsername + "@cloudbalance.local",
			Role:      cloudbalance.RoleAdmin,
		},
	); err != nil {
		return nil, errors.Wrap(err, "error seeding administrator")
	}
	if config.SeedDemoData {
		if err := s.seedDemoData(); err != nil {
			return nil, errors.Wrap(err, "error seeding demo data")
		}
	}
	return s, nil
}

func (s *Service) Login(
	credentials cloudbalance.Credentials,
) (cloudbalance.SessionGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.userByUsername(credentials.Username)
	if record == nil || bcrypt.CompareHashAndPassword(
		record.passwordHash,
		[]byte(credentials.Password),
	) != nil {
		return cloudbalance.SessionGrant{},
			cloudbalance.NewErrAuthentication("Invalid username or password")
	}
	session := s.newSession(record.user.ID, "")
	glog.V(2).Infof("user %s logged in", record.user.Username)
	return grant(record.user, session.token), nil
}

// authenticate resolves a bearer token to its principal and slides the
// session's expiry forward.
func (s *Service) authenticate(token string) (principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok || !session.active {
		return principal{},
			cloudbalance.NewErrAuthentication("Invalid or expired session")
	}
	now := s.now()
	if now.After(session.expires) {
		session.active = false
		return principal{},
			cloudbalance.NewErrAuthentication("Invalid or expired session")
	}
	record, ok := s.users[session.userID]
	if !ok {
		session.active = false
		return principal{},
			cloudbalance.NewErrAuthentication("Invalid or expired session")
	}
	session.expires = now.Add(s.config.SessionTimeout)
	return principal{
		user:          s.withAssignments(record.user),
		token:         token,
		impersonating: session.originalAdminToken != "",
	}, nil
}

func (s *Service) Logout(p principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[p.token]; ok {
		session.active = false
	}
	glog.V(2).Infof("user %s logged out", p.user.Username)
}

// ForgotPassword issues a reset token if the address belongs to a user. The
// answer is the same either way so that callers cannot probe for addresses.
func (s *Service) ForgotPassword(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.users {
		if strings.EqualFold(record.user.Email, email) {
			token := uuid.NewV4().String()
			s.resetTokens[token] = resetTokenRecord{
				userID:  record.user.ID,
				expires: s.now().Add(s.config.ResetTokenTimeout),
			}
			s.outbox[strings.ToLower(email)] = token
			glog.V(2).Infof("issued password reset token to %s", email)
			break
		}
	}
	return "If your email is registered, you will receive a password reset link"
}

// SentResetToken returns the last reset token sent to the address. It stands
// in for an inbox.
func (s *Service) SentResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.outbox[strings.ToLower(email)]
	return token, ok
}

func (s *Service) ValidateResetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.resetToken(token)
	return err
}

// ResetPassword sets a new password, consumes the reset token and ends every
// session the user holds.
func (s *Service) ResetPassword(token, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resetToken, err := s.resetToken(token)
	if err != nil {
		return err
	}
	record, ok := s.users[resetToken.userID]
	if !ok {
		return cloudbalance.NewErrBadRequest("Invalid or expired token")
	}
	if record.passwordHash, err = s.hash(newPassword); err != nil {
		return err
	}
	delete(s.resetTokens, token)
	for _, session := range s.sessions {
		if session.userID == record.user.ID {
			session.active = false
		}
	}
	return nil
}

func (s *Service) resetToken(token string) (resetTokenRecord, error) {
	resetToken, ok := s.resetTokens[token]
	if !ok || s.now().After(resetToken.expires) {
		return resetToken, cloudbalance.NewErrBadRequest("Invalid or expired token")
	}
	return resetToken, nil
}

// Impersonate starts an impersonation session for the target user on behalf
// of the administrator making the request.
func (s *Service) Impersonate(
	p principal,
	targetUserID int64,
) (cloudbalance.SessionGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.impersonating {
		return cloudbalance.SessionGrant{}, cloudbalance.NewErrBadRequest(
			"Cannot create nested impersonation sessions",
		)
	}
	if p.user.Role != cloudbalance.RoleAdmin {
		return cloudbalance.SessionGrant{},
			cloudbalance.NewErrAuthorization(msgAccessDenied)
	}
	target, ok := s.users[targetUserID]
	if !ok {
		return cloudbalance.SessionGrant{}, cloudbalance.NewErrNotFound(
			fmt.Sprintf("User not found with id: %d", targetUserID),
		)
	}
	if target.user.Role != cloudbalance.RoleCustomer {
		return cloudbalance.SessionGrant{}, cloudbalance.NewErrBadRequest(
			"Admin can only impersonate customers",
		)
	}
	if target.user.ID == p.user.ID {
		return cloudbalance.SessionGrant{},
			cloudbalance.NewErrBadRequest("Cannot impersonate yourself")
	}
	session := s.newSession(target.user.ID, p.token)
	glog.V(2).Infof(
		"administrator %s is impersonating %s",
		p.user.Username,
		target.user.Username,
	)
	return grant(target.user, session.token), nil
}

// RevertImpersonation ends the impersonation session making the request. The
// administrator's original session is renewed if it is still alive; otherwise
// the administrator gets a new one.
func (s *Service) RevertImpersonation(
	p principal,
) (cloudbalance.SessionGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[p.token]
	if !ok || session.originalAdminToken == "" {
		return cloudbalance.SessionGrant{}, cloudbalance.NewErrBadRequest(
			"This is not an impersonation session",
		)
	}
	session.active = false
	adminSession, ok := s.sessions[session.originalAdminToken]
	if !ok {
		return cloudbalance.SessionGrant{}, cloudbalance.NewErrBadRequest(
			"Original admin session not found",
		)
	}
	admin, ok := s.users[adminSession.userID]
	if !ok {
		return cloudbalance.SessionGrant{},
			cloudbalance.NewErrAuthentication("Original admin no longer exists")
	}
	now := s.now()
	if adminSession.active && !now.After(adminSession.expires) {
		adminSession.expires = now.Add(s.config.SessionTimeout)
	} else {
		adminSession = s.newSession(admin.user.ID, "")
	}
	glog.V(2).Infof("%s reverted to administrator %s", p.user.Username, admin.user.Username)
	return grant(admin.user, adminSession.token), nil
}

func (s *Service) ListUsers() []cloudbalance.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]cloudbalance.User, 0, len(s.users))
	for _, record := range s.users {
		users = append(users, s.withAssignments(record.user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *Service) GetUser(id int64) (cloudbalance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.user(id)
	if err != nil {
		return cloudbalance.User{}, err
	}
	return s.withAssignments(record.user), nil
}

func (s *Service) CreateUser(
	userCreate cloudbalance.UserCreate,
) (cloudbalance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByUsername(userCreate.Username) != nil {
		return cloudbalance.User{},
			cloudbalance.NewErrConflict("Username is already taken")
	}
	if s.userByEmail(userCreate.Email) != nil {
		return cloudbalance.User{},
			cloudbalance.NewErrConflict("Email is already in use")
	}
	if len(userCreate.AccountIDs) > 0 &&
		userCreate.Role != cloudbalance.RoleCustomer {
		return cloudbalance.User{}, cloudbalance.NewErrBadRequest(
			"Accounts can only be assigned to customers",
		)
	}
	if err := s.checkAccounts(userCreate.AccountIDs); err != nil {
		return cloudbalance.User{}, err
	}
	passwordHash, err := s.hash(userCreate.Password)
	if err != nil {
		return cloudbalance.User{}, err
	}
	s.nextUserID++
	now := cloudbalance.Timestamp{Time: s.now().UTC()}
	record := &userRecord{
		user: cloudbalance.User{
			ID:        s.nextUserID,
			Username:  userCreate.Username,
			FirstName: userCreate.FirstName,
			LastName:  userCreate.LastName,
			Email:     userCreate.Email,
			Role:      userCreate.Role,
			Created:   &now,
		},
		passwordHash: passwordHash,
	}
	s.users[record.user.ID] = record
	s.assign(record.user.ID, userCreate.AccountIDs)
	return s.withAssignments(record.user), nil
}

// UpdateUser applies the non-empty fields of the update. Users may not change
// their own role.
func (s *Service) UpdateUser(
	p principal,
	id int64,
	userUpdate cloudbalance.UserUpdate,
) (cloudbalance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.user(id)
	if err != nil {
		return cloudbalance.User{}, err
	}
	role := record.user.Role
	if userUpdate.Role != "" && userUpdate.Role != role {
		if id == p.user.ID {
			return cloudbalance.User{},
				cloudbalance.NewErrBadRequest("Cannot change your own role")
		}
		role = userUpdate.Role
	}
	if userUpdate.Username != "" &&
		userUpdate.Username != record.user.Username &&
		s.userByUsername(userUpdate.Username) != nil {
		return cloudbalance.User{},
			cloudbalance.NewErrConflict("Username is already taken")
	}
	if userUpdate.Email != "" &&
		!strings.EqualFold(userUpdate.Email, record.user.Email) &&
		s.userByEmail(userUpdate.Email) != nil {
		return cloudbalance.User{},
			cloudbalance.NewErrConflict("Email is already in use")
	}
	if userUpdate.AccountIDs != nil {
		if role != cloudbalance.RoleCustomer {
			return cloudbalance.User{}, cloudbalance.NewErrBadRequest(
				"Accounts can only be assigned to customers",
			)
		}
		if err = s.checkAccounts(userUpdate.AccountIDs); err != nil {
			return cloudbalance.User{}, err
		}
	}
	passwordHash := record.passwordHash
	if userUpdate.Password != "" {
		if passwordHash, err = s.hash(userUpdate.Password); err != nil {
			return cloudbalance.User{}, err
		}
	}

	// Nothing below can fail.
	if userUpdate.Username != "" {
		record.user.Username = userUpdate.Username
	}
	if userUpdate.Email != "" {
		record.user.Email = userUpdate.Email
	}
	if userUpdate.FirstName != "" {
		record.user.FirstName = userUpdate.FirstName
	}
	if userUpdate.LastName != "" {
		record.user.LastName = userUpdate.LastName
	}
	record.user.Role = role
	record.passwordHash = passwordHash
	if role != cloudbalance.RoleCustomer {
		// Only customers carry account assignments.
		delete(s.assignments, id)
	}
	if userUpdate.AccountIDs != nil {
		delete(s.assignments, id)
		s.assign(id, userUpdate.AccountIDs)
	}
	return s.withAssignments(record.user), nil
}

func (s *Service) AssignAccounts(
	id int64,
	accountIDs []int64,
) (cloudbalance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.user(id)
	if err != nil {
		return cloudbalance.User{}, err
	}
	if record.user.Role != cloudbalance.RoleCustomer {
		return cloudbalance.User{}, cloudbalance.NewErrBadRequest(
			"Accounts can only be assigned to customers",
		)
	}
	if err = s.checkAccounts(accountIDs); err != nil {
		return cloudbalance.User{}, err
	}
	s.assign(id, accountIDs)
	return s.withAssignments(record.user), nil
}

func (s *Service) RemoveAccounts(
	id int64,
	accountIDs []int64,
) (cloudbalance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.user(id)
	if err != nil {
		return cloudbalance.User{}, err
	}
	for _, accountID := range accountIDs {
		delete(s.assignments[id], accountID)
	}
	return s.withAssignments(record.user), nil
}

func (s *Service) ListAccounts() []cloudbalance.CloudAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountsWhere(func(*cloudbalance.CloudAccount) bool { return true })
}

// GetAccount returns the account if the principal may see it.
func (s *Service) GetAccount(
	p principal,
	id int64,
) (cloudbalance.CloudAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, err := s.account(id)
	if err != nil {
		return cloudbalance.CloudAccount{}, err
	}
	if !s.canAccess(p.user, id) {
		return cloudbalance.CloudAccount{},
			cloudbalance.NewErrAuthorization(msgAccessDenied)
	}
	return *account, nil
}

// ListOrphanedAccounts returns the accounts no user is assigned to.
func (s *Service) ListOrphanedAccounts() []cloudbalance.CloudAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	assigned := map[int64]struct{}{}
	for _, accountIDs := range s.assignments {
		for accountID := range accountIDs {
			assigned[accountID] = struct{}{}
		}
	}
	return s.accountsWhere(func(account *cloudbalance.CloudAccount) bool {
		_, ok := assigned[account.ID]
		return !ok
	})
}

func (s *Service) ListAccountsByUser(
	userID int64,
) ([]cloudbalance.CloudAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.user(userID); err != nil {
		return nil, err
	}
	return s.accountsWhere(func(account *cloudbalance.CloudAccount) bool {
		_, ok := s.assignments[userID][account.ID]
		return ok
	}), nil
}

// ListAccessibleAccounts returns the active accounts the user can see.
// Customers may only ask about themselves.
func (s *Service) ListAccessibleAccounts(
	p principal,
	userID int64,
) ([]cloudbalance.CloudAccount, error) {
	if p.user.Role == cloudbalance.RoleCustomer && p.user.ID != userID {
		return nil, cloudbalance.NewErrAuthorization(msgAccessDenied)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return s.accountsWhere(func(account *cloudbalance.CloudAccount) bool {
		return account.IsActive() && s.canAccess(record.user, account.ID)
	}), nil
}

func (s *Service) CreateAccount(
	accountCreate cloudbalance.CloudAccountCreate,
) (cloudbalance.CloudAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.AccountID == accountCreate.AccountID {
			return cloudbalance.CloudAccount{}, cloudbalance.NewErrConflict(
				"Cloud account with this account ID already exists",
			)
		}
	}
	active := true
	if accountCreate.Active != nil {
		active = *accountCreate.Active
	}
	s.nextAccountID++
	now := cloudbalance.Timestamp{Time: s.now().UTC()}
	account := &cloudbalance.CloudAccount{
		ID:          s.nextAccountID,
		AccountID:   accountCreate.AccountID,
		AccountName: accountCreate.AccountName,
		ARN:         accountCreate.ARN,
		Provider:    accountCreate.Provider,
		Region:      accountCreate.Region,
		Active:      &active,
		Created:     &now,
	}
	s.accounts[account.ID] = account
	s.resources[account.ID] = generateResources(*account)
	return *account, nil
}

func (s *Service) UpdateAccount(
	id int64,
	accountUpdate cloudbalance.CloudAccountUpdate,
) (cloudbalance.CloudAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, err := s.account(id)
	if err != nil {
		return cloudbalance.CloudAccount{}, err
	}
	if accountUpdate.AccountName != "" {
		account.AccountName = accountUpdate.AccountName
	}
	if accountUpdate.ARN != "" {
		account.ARN = accountUpdate.ARN
	}
	if accountUpdate.Provider != "" {
		account.Provider = accountUpdate.Provider
	}
	if accountUpdate.Region != "" {
		account.Region = accountUpdate.Region
	}
	if accountUpdate.Active != nil {
		active := *accountUpdate.Active
		account.Active = &active
	}
	return *account, nil
}

func (s *Service) SetAccountActive(
	id int64,
	active bool,
) (cloudbalance.CloudAccount, error) {
	return s.UpdateAccount(id, cloudbalance.CloudAccountUpdate{Active: &active})
}

// newSession must be called with the lock held.
func (s *Service) newSession(userID int64, originalAdminToken string) *sessionRecord {
	session := &sessionRecord{
		token:              uuid.NewV4().String(),
		userID:             userID,
		active:             true,
		expires:            s.now().Add(s.config.SessionTimeout),
		originalAdminToken: originalAdminToken,
	}
	s.sessions[session.token] = session
	return session
}

func (s *Service) hash(password string) ([]byte, error) {
	passwordHash, err :=
		bcrypt.GenerateFromPassword([]byte(password), s.config.PasswordHashCost)
	return passwordHash, errors.Wrap(err, "error hashing password")
}

func (s *Service) user(id int64) (*userRecord, error) {
	record, ok := s.users[id]
	if !ok {
		return nil, cloudbalance.NewErrNotFound(
			fmt.Sprintf("User not found with id: %d", id),
		)
	}
	return record, nil
}

func (s *Service) userByUsername(username string) *userRecord {
	for _, record := range s.users {
		if record.user.Username == username {
			return record
		}
	}
	return nil
}

func (s *Service) userByEmail(email string) *userRecord {
	for _, record := range s.users {
		if strings.EqualFold(record.user.Email, email) {
			return record
		}
	}
	return nil
}

func (s *Service) account(id int64) (*cloudbalance.CloudAccount, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, cloudbalance.NewErrNotFound(
			fmt.Sprintf("Cloud account not found with id: %d", id),
		)
	}
	return account, nil
}

func (s *Service) checkAccounts(accountIDs []int64) error {
	for _, accountID := range accountIDs {
		if _, err := s.account(accountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) assign(userID int64, accountIDs []int64) {
	if len(accountIDs) == 0 {
		return
	}
	if s.assignments[userID] == nil {
		s.assignments[userID] = map[int64]struct{}{}
	}
	for _, accountID := range accountIDs {
		s.assignments[userID][accountID] = struct{}{}
	}
}

// canAccess returns true if the user may see the account. Only customers are
// restricted to their assignments.
func (s *Service) canAccess(user cloudbalance.User, accountID int64) bool {
	if user.Role != cloudbalance.RoleCustomer {
		return true
	}
	_, ok := s.assignments[user.ID][accountID]
	return ok
}

func (s *Service) withAssignments(user cloudbalance.User) cloudbalance.User {
	user.AssignedAccounts = s.accountsWhere(
		func(account *cloudbalance.CloudAccount) bool {
			_, ok := s.assignments[user.ID][account.ID]
			return ok
		},
	)
	return user
}

func (s *Service) accountsWhere(
	predicate func(*cloudbalance.CloudAccount) bool,
) []cloudbalance.CloudAccount {
	accounts := []cloudbalance.CloudAccount{}
	for _, account := range s.accounts {
		if predicate(account) {
			accounts = append(accounts, *account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}

func grant(user cloudbalance.User, token string) cloudbalance.SessionGrant {
	return cloudbalance.SessionGrant{
		SessionToken: token,
		UserID:       user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Role:         user.Role,
	}
}
