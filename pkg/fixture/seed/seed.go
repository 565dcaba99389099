// Package seed loads fixture data from a yaml file into the store.
//
// Seed files use the same field names the API serves (camelCase json tags),
// so a captured API response can be pasted into a seed file as-is. To get
// that, the yaml document is re-encoded through json before decoding into
// the domain types.
package seed

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
	"github.com/datakin/workbench/pkg/fixture"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

type Seed struct {
	Users         []domain.User             `json:"users"`
	Tables        []domain.Table            `json:"tables"`
	Datasets      []domain.Dataset          `json:"datasets"`
	Flows         []domain.Flow             `json:"flows"`
	Replays       []domain.Replay           `json:"replays"`
	Models        []domain.Model            `json:"models"`
	CVModels      []domain.CVModel          `json:"cvModels"`
	Experiments   []domain.Experiment       `json:"experiments"`
	Albums        []domain.Album            `json:"albums"`
	Predictions   []domain.Prediction       `json:"predictions"`
	Diaas         []domain.Diaa             `json:"diaas"`
	Scripts       []domain.ScriptDeployment `json:"scriptDeployments"`
	OnlineAPIs    []domain.OnlineAPI        `json:"onlineApis"`
	Projects      []domain.Project          `json:"projects"`
	ProjectLinks  []domain.ProjectLink      `json:"projectLinks"`
	Shares        []domain.Share            `json:"shares"`
	Notifications []domain.Notification     `json:"notifications"`
}

// Load reads a seed file.
//
// args:
//   - filepath: filepath refers a seed file.
//
// returns *Seed, error:
//
//	When loading success, returns `(*Seed, nil)`.
//	Otherwise, returns `(nil, error)`.
func Load(filepath string) (*Seed, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(content []byte) (*Seed, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	bridged, err := codec.Marshal(raw)
	if err != nil {
		return nil, err
	}
	out := &Seed{}
	if err := codec.Unmarshal(bridged, out); err != nil {
		return nil, err
	}
	return out, nil
}

func insertAll[T any, PT db.Record[T]](col *db.Collection[T, PT], recs []T) error {
	for _, rec := range recs {
		if _, err := col.Insert(rec); err != nil {
			return fmt.Errorf("seeding %s: %w", col.Name(), err)
		}
	}
	return nil
}

// Apply inserts every record in the seed. Records keep the ids the seed
// file gives them so links between seeded assets hold.
func (s *Seed) Apply(db *fixture.Database) error {
	if err := insertAll(db.Users, s.Users); err != nil {
		return err
	}
	if err := insertAll(db.Tables, s.Tables); err != nil {
		return err
	}
	if err := insertAll(db.Datasets, s.Datasets); err != nil {
		return err
	}
	if err := insertAll(db.Flows, s.Flows); err != nil {
		return err
	}
	if err := insertAll(db.Replays, s.Replays); err != nil {
		return err
	}
	if err := insertAll(db.Models, s.Models); err != nil {
		return err
	}
	if err := insertAll(db.CVModels, s.CVModels); err != nil {
		return err
	}
	if err := insertAll(db.Experiments, s.Experiments); err != nil {
		return err
	}
	if err := insertAll(db.Albums, s.Albums); err != nil {
		return err
	}
	if err := insertAll(db.Predictions, s.Predictions); err != nil {
		return err
	}
	if err := insertAll(db.Diaas, s.Diaas); err != nil {
		return err
	}
	if err := insertAll(db.Scripts, s.Scripts); err != nil {
		return err
	}
	if err := insertAll(db.OnlineAPIs, s.OnlineAPIs); err != nil {
		return err
	}
	if err := insertAll(db.Projects, s.Projects); err != nil {
		return err
	}
	if err := insertAll(db.ProjectLinks, s.ProjectLinks); err != nil {
		return err
	}
	if err := insertAll(db.Shares, s.Shares); err != nil {
		return err
	}
	if err := insertAll(db.Notifications, s.Notifications); err != nil {
		return err
	}
	return nil
}

// ApplyIfEmpty seeds only when no users exist yet, so restarts of a
// persistent store do not duplicate data. It reports whether it seeded.
func ApplyIfEmpty(db *fixture.Database, s *Seed) (bool, error) {
	existing, err := db.Users.Find(nil)
	if err != nil {
		return false, err
	}
	if 0 < len(existing) {
		return false, nil
	}
	return true, s.Apply(db)
}
