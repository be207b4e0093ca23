package manageapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nsfscore/nsfsctl/pkg/accounts"
	"github.com/nsfscore/nsfsctl/pkg/buckets"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/identity"
)

// newBucketsPathProbeTimeout bounds how long accountAdd/accountUpdate wait
// for the scoped read/write probe of new_buckets_path before giving up.
const newBucketsPathProbeTimeout = 5 * time.Second

// AccountAddOptions are the options for `account add`.
type AccountAddOptions struct {
	Name              string  `json:"name"`
	NewBucketsPath    string  `json:"new_buckets_path"`
	UID               *uint32 `json:"uid,omitempty"`
	GID               *uint32 `json:"gid,omitempty"`
	DistinguishedName string  `json:"user,omitempty"`
	AccessKey         string  `json:"access_key,omitempty"`
	SecretKey         string  `json:"secret_key,omitempty"`
}

// AccountUpdateOptions are the options for `account update`.
type AccountUpdateOptions struct {
	Name           string  `json:"name"`
	NewBucketsPath *string `json:"new_buckets_path,omitempty"`
	Regenerate     bool    `json:"regenerate,omitempty"`
}

// AccountListOptions are the options for `account list`.
type AccountListOptions struct {
	UID       *uint32 `json:"uid,omitempty"`
	GID       *uint32 `json:"gid,omitempty"`
	User      string  `json:"user,omitempty"`
	AccessKey string  `json:"access_key,omitempty"`
	Name      string  `json:"name,omitempty"`
	Wide      bool    `json:"wide,omitempty"`
}

// AccountStatusDeleteOptions identifies a single account by name.
type AccountStatusDeleteOptions struct {
	Name string `json:"name"`
}

func (s *Server) dispatchAccount(ctx context.Context, req Request) Result {
	switch req.Action {
	case ActionAdd:
		var opts AccountAddOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.accountAdd(ctx, opts)
	case ActionUpdate:
		var opts AccountUpdateOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.accountUpdate(ctx, opts)
	case ActionList:
		var opts AccountListOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.accountList(opts)
	case ActionStatus:
		var opts AccountStatusDeleteOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.accountStatus(opts)
	case ActionDelete:
		var opts AccountStatusDeleteOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.accountDelete(opts)
	default:
		return errResult(CodeInvalidArgument, fmt.Sprintf("unknown account action %q", req.Action))
	}
}

func (s *Server) accountAdd(ctx context.Context, opts AccountAddOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	accessKey, secretKey := opts.AccessKey, opts.SecretKey
	if accessKey == "" {
		accessKey = generateAccessKey()
	}
	if secretKey == "" {
		secretKey = generateSecretKey()
	}
	if !identity.ValidateAccessKey(accessKey) {
		return errResult(CodeAccountAccessKeyFlagComplexity, "access_key must be 20 alphanumeric characters")
	}
	if !identity.ValidateSecretKey(secretKey) {
		return errResult(CodeAccountSecretKeyFlagComplexity, "secret_key must be 40 base64-alphabet characters")
	}

	fsConfig := accounts.AccountFSConfig{
		UID:               opts.UID,
		GID:               opts.GID,
		DistinguishedName: opts.DistinguishedName,
	}
	ident, err := fsConfig.Identity()
	if err != nil {
		return errResult(CodeInvalidAccountDistinguishedName, err.Error())
	}
	if err := identity.ProbeNewBucketsPath(ctx, ident, opts.NewBucketsPath, newBucketsPathProbeTimeout); err != nil {
		return errResult(CodeInaccessibleAccountNewBucketsPath, err.Error())
	}

	account := accounts.NewAccount(opts.Name, opts.NewBucketsPath, fsConfig,
		[]accounts.S3Access{{AccessKey: accessKey, SecretKey: secretKey}})

	if err := account.Validate(); err != nil {
		return errResult(CodeInvalidArgument, err.Error())
	}

	data, err := account.MarshalConfig()
	if err != nil {
		return errResult(CodeInternal, err.Error())
	}
	if err := s.cfs.CreateConfigFile(configfs.AccountsDir, account.Name, data); err != nil {
		if errors.Is(err, configfs.ErrAlreadyExists) {
			return errResult(CodeAlreadyExists, fmt.Sprintf("account %s already exists", account.Name))
		}
		return errResult(CodeIO, err.Error())
	}
	if err := s.cfs.LinkAccessKey(accessKey, account.Name); err != nil {
		return errResult(CodeIO, err.Error())
	}

	return okResult(account)
}

func (s *Server) accountUpdate(ctx context.Context, opts AccountUpdateOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	data, err := s.cfs.ReadConfigFile(configfs.AccountsDir, opts.Name)
	if err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	account, err := accounts.UnmarshalAccount(data)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}

	if opts.NewBucketsPath != nil {
		ident, err := account.NSFSAccountConfig.Identity()
		if err != nil {
			return errResult(CodeInvalidAccountDistinguishedName, err.Error())
		}
		if err := identity.ProbeNewBucketsPath(ctx, ident, *opts.NewBucketsPath, newBucketsPathProbeTimeout); err != nil {
			return errResult(CodeInaccessibleAccountNewBucketsPath, err.Error())
		}
		account.NewBucketsPath = *opts.NewBucketsPath
	}
	if opts.Regenerate {
		newKey := generateAccessKey()
		newSecret := generateSecretKey()
		if old, ok := account.PrimaryAccessKey(); ok {
			if err := s.cfs.UnlinkAccessKey(old.AccessKey); err != nil && !errors.Is(err, configfs.ErrNotFound) {
				return errResult(CodeIO, err.Error())
			}
		}
		account.AccessKeys = []accounts.S3Access{{AccessKey: newKey, SecretKey: newSecret}}
		if err := s.cfs.LinkAccessKey(newKey, account.Name); err != nil {
			return errResult(CodeIO, err.Error())
		}
	}

	if err := account.Validate(); err != nil {
		return errResult(CodeInvalidArgument, err.Error())
	}

	newData, err := account.MarshalConfig()
	if err != nil {
		return errResult(CodeInternal, err.Error())
	}
	if err := s.cfs.UpdateConfigFile(configfs.AccountsDir, account.Name, newData); err != nil {
		return errResult(CodeIO, err.Error())
	}
	if s.cache != nil {
		s.cache.Invalidate(account.ID)
	}
	return okResult(account)
}

func (s *Server) accountList(opts AccountListOptions) Result {
	var matches []*accounts.Account
	err := s.cfs.List(configfs.AccountsDir, func(name string, data []byte) error {
		a, err := accounts.UnmarshalAccount(data)
		if err != nil {
			return err
		}
		if accountMatchesFilter(a, opts) {
			matches = append(matches, a)
		}
		return nil
	})
	if err != nil {
		return errResult(CodeIO, err.Error())
	}

	if !opts.Wide {
		names := make([]string, len(matches))
		for i, a := range matches {
			names[i] = a.Name
		}
		return okResult(names)
	}
	return okResult(matches)
}

// accountMatchesFilter AND-conjoins every non-zero filter field: an
// account must satisfy all of them, not any.
func accountMatchesFilter(a *accounts.Account, opts AccountListOptions) bool {
	if opts.Name != "" && a.Name != opts.Name {
		return false
	}
	if opts.UID != nil && (a.NSFSAccountConfig.UID == nil || *a.NSFSAccountConfig.UID != *opts.UID) {
		return false
	}
	if opts.GID != nil && (a.NSFSAccountConfig.GID == nil || *a.NSFSAccountConfig.GID != *opts.GID) {
		return false
	}
	if opts.User != "" && a.NSFSAccountConfig.DistinguishedName != opts.User {
		return false
	}
	if opts.AccessKey != "" {
		found := false
		for _, k := range a.AccessKeys {
			if k.AccessKey == opts.AccessKey {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Server) accountStatus(opts AccountStatusDeleteOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	data, err := s.cfs.ReadConfigFile(configfs.AccountsDir, opts.Name)
	if err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	account, err := accounts.UnmarshalAccount(data)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}
	return okResult(account)
}

func (s *Server) accountDelete(opts AccountStatusDeleteOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	data, err := s.cfs.ReadConfigFile(configfs.AccountsDir, opts.Name)
	if err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	account, err := accounts.UnmarshalAccount(data)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}

	referenced, err := accountHasBuckets(s.cfs, account.ID)
	if err != nil {
		return errResult(CodeIO, err.Error())
	}
	if referenced {
		return errResult(CodeAccountDeleteForbiddenHasBuckets,
			fmt.Sprintf("account %s still owns one or more buckets", opts.Name))
	}

	for _, k := range account.AccessKeys {
		if err := s.cfs.UnlinkAccessKey(k.AccessKey); err != nil && !errors.Is(err, configfs.ErrNotFound) {
			return errResult(CodeIO, err.Error())
		}
	}
	if err := s.cfs.DeleteConfigFile(configfs.AccountsDir, opts.Name); err != nil {
		return errResult(CodeIO, err.Error())
	}
	if s.cache != nil {
		s.cache.Invalidate(account.ID)
	}
	return okResult(map[string]string{"name": opts.Name})
}

// accountHasBuckets reports whether any bucket's owner_account references
// accountID, which forbids deleting that account.
func accountHasBuckets(cfs *configfs.ConfigFS, accountID string) (bool, error) {
	found := false
	err := cfs.List(configfs.BucketsDir, func(name string, data []byte) error {
		b, err := buckets.UnmarshalBucket(data)
		if err != nil {
			return err
		}
		if b.OwnerAccount == accountID {
			found = true
		}
		return nil
	})
	return found, err
}

func notFoundOrInternal(name string, err error) Result {
	if errors.Is(err, configfs.ErrNotFound) {
		return errResult(CodeNotFound, fmt.Sprintf("%s not found", name))
	}
	return errResult(CodeIO, err.Error())
}

func generateAccessKey() string {
	id := uuid.New()
	hex := id.String()
	out := make([]byte, 0, 20)
	for _, r := range hex {
		if r == '-' {
			continue
		}
		out = append(out, byte(r))
		if len(out) == 20 {
			break
		}
	}
	for len(out) < 20 {
		out = append(out, '0')
	}
	result := make([]byte, 20)
	copy(result, out)
	for i, c := range result {
		if c >= 'a' && c <= 'f' {
			result[i] = c - 'a' + 'A'
		}
	}
	return string(result)
}

func generateSecretKey() string {
	a := uuid.New().String()
	b := uuid.New().String()
	combined := (a + b)
	out := make([]byte, 0, 40)
	for _, r := range combined {
		if r == '-' {
			continue
		}
		out = append(out, byte(r))
		if len(out) == 40 {
			break
		}
	}
	for len(out) < 40 {
		out = append(out, '0')
	}
	return string(out[:40])
}
