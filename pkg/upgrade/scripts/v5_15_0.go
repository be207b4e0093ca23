// Package scripts holds the compiled-in upgrade scripts, one file per
// config-dir schema version, each self-registering via init().
package scripts

import (
	"github.com/nsfscore/nsfsctl/pkg/configfs"
	"github.com/nsfscore/nsfsctl/pkg/upgrade"
)

func init() {
	upgrade.Register(upgrade.Script{
		Version:     "5.15.0",
		Description: "backfill versioning field on bucket config documents",
		Run:         backfillBucketVersioning,
	})
}

func backfillBucketVersioning(cfs *configfs.ConfigFS) error {
	names, err := cfs.ListNames(configfs.BucketsDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := cfs.ReadConfigFile(configfs.BucketsDir, name)
		if err != nil {
			return err
		}
		if !hasVersioningField(data) {
			data = addVersioningField(data)
			if err := cfs.UpdateConfigFile(configfs.BucketsDir, name, data); err != nil {
				return err
			}
		}
	}
	return nil
}
