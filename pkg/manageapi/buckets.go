package manageapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsfscore/nsfsctl/pkg/accounts"
	"github.com/nsfscore/nsfsctl/pkg/buckets"
	"github.com/nsfscore/nsfsctl/pkg/configfs"
)

// BucketAddOptions are the options for `bucket add`.
type BucketAddOptions struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Path  string `json:"path"`
}

// BucketUpdateOptions are the options for `bucket update`.
type BucketUpdateOptions struct {
	Name       string  `json:"name"`
	Path       *string `json:"path,omitempty"`
	Versioning *string `json:"versioning,omitempty"`
}

// BucketListOptions are the options for `bucket list`.
type BucketListOptions struct {
	Owner string `json:"owner,omitempty"`
	Name  string `json:"name,omitempty"`
	Wide  bool   `json:"wide,omitempty"`
}

// BucketStatusDeleteOptions identifies a single bucket by name.
type BucketStatusDeleteOptions struct {
	Name string `json:"name"`
}

func (s *Server) dispatchBucket(ctx context.Context, req Request) Result {
	switch req.Action {
	case ActionAdd:
		var opts BucketAddOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.bucketAdd(opts)
	case ActionUpdate:
		var opts BucketUpdateOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.bucketUpdate(opts)
	case ActionList:
		var opts BucketListOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.bucketList(opts)
	case ActionStatus:
		var opts BucketStatusDeleteOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.bucketStatus(opts)
	case ActionDelete:
		var opts BucketStatusDeleteOptions
		if err := decodeOptions(req.Options, &opts); err != nil {
			return errResult(CodeMalformed, err.Error())
		}
		return s.bucketDelete(opts)
	default:
		return errResult(CodeInvalidArgument, fmt.Sprintf("unknown bucket action %q", req.Action))
	}
}

func (s *Server) bucketAdd(opts BucketAddOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	accountData, err := s.cfs.ReadConfigFile(configfs.AccountsDir, opts.Owner)
	if err != nil {
		if errors.Is(err, configfs.ErrNotFound) {
			return errResult(CodeInvalidArgument, fmt.Sprintf("owner account %s does not exist", opts.Owner))
		}
		return errResult(CodeIO, err.Error())
	}
	owner, err := accounts.UnmarshalAccount(accountData)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}

	bucket := buckets.NewBucket(opts.Name, owner.ID, owner.Name, opts.Path)
	if err := bucket.Validate(); err != nil {
		return errResult(CodeInvalidArgument, err.Error())
	}

	data, err := bucket.MarshalConfig()
	if err != nil {
		return errResult(CodeInternal, err.Error())
	}
	if err := s.cfs.CreateConfigFile(configfs.BucketsDir, bucket.Name, data); err != nil {
		if errors.Is(err, configfs.ErrAlreadyExists) {
			return errResult(CodeAlreadyExists, fmt.Sprintf("bucket %s already exists", bucket.Name))
		}
		return errResult(CodeIO, err.Error())
	}
	return okResult(bucket)
}

func (s *Server) bucketUpdate(opts BucketUpdateOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	data, err := s.cfs.ReadConfigFile(configfs.BucketsDir, opts.Name)
	if err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	bucket, err := buckets.UnmarshalBucket(data)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}

	if opts.Path != nil {
		bucket.Path = *opts.Path
	}
	if opts.Versioning != nil {
		bucket.Versioning = *opts.Versioning
	}

	if err := bucket.Validate(); err != nil {
		return errResult(CodeInvalidArgument, err.Error())
	}

	newData, err := bucket.MarshalConfig()
	if err != nil {
		return errResult(CodeInternal, err.Error())
	}
	if err := s.cfs.UpdateConfigFile(configfs.BucketsDir, bucket.Name, newData); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(bucket)
}

func (s *Server) bucketList(opts BucketListOptions) Result {
	var matches []*buckets.Bucket
	err := s.cfs.List(configfs.BucketsDir, func(name string, data []byte) error {
		b, err := buckets.UnmarshalBucket(data)
		if err != nil {
			return err
		}
		if bucketMatchesFilter(b, opts) {
			matches = append(matches, b)
		}
		return nil
	})
	if err != nil {
		return errResult(CodeIO, err.Error())
	}

	if !opts.Wide {
		names := make([]string, len(matches))
		for i, b := range matches {
			names[i] = b.Name
		}
		return okResult(names)
	}
	return okResult(matches)
}

func bucketMatchesFilter(b *buckets.Bucket, opts BucketListOptions) bool {
	if opts.Name != "" && b.Name != opts.Name {
		return false
	}
	if opts.Owner != "" && b.BucketOwner != opts.Owner {
		return false
	}
	return true
}

func (s *Server) bucketStatus(opts BucketStatusDeleteOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	data, err := s.cfs.ReadConfigFile(configfs.BucketsDir, opts.Name)
	if err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	bucket, err := buckets.UnmarshalBucket(data)
	if err != nil {
		return errResult(CodeMalformed, err.Error())
	}
	return okResult(bucket)
}

func (s *Server) bucketDelete(opts BucketStatusDeleteOptions) Result {
	if opts.Name == "" {
		return errResult(CodeMissingIdentifier, "name is required")
	}
	if _, err := s.cfs.ReadConfigFile(configfs.BucketsDir, opts.Name); err != nil {
		return notFoundOrInternal(opts.Name, err)
	}
	if err := s.cfs.DeleteConfigFile(configfs.BucketsDir, opts.Name); err != nil {
		return errResult(CodeIO, err.Error())
	}
	return okResult(map[string]string{"name": opts.Name})
}
