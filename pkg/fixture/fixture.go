// Package fixture aggregates the typed collections of the mock backend into
// one database object that route handlers and the simulator share.
package fixture

import (
	"github.com/datakin/workbench/pkg/db"
	"github.com/datakin/workbench/pkg/domain"
)

type Database struct {
	Users         *db.Collection[domain.User, *domain.User]
	Tables        *db.Collection[domain.Table, *domain.Table]
	Datasets      *db.Collection[domain.Dataset, *domain.Dataset]
	Flows         *db.Collection[domain.Flow, *domain.Flow]
	Replays       *db.Collection[domain.Replay, *domain.Replay]
	Models        *db.Collection[domain.Model, *domain.Model]
	CVModels      *db.Collection[domain.CVModel, *domain.CVModel]
	Experiments   *db.Collection[domain.Experiment, *domain.Experiment]
	Albums        *db.Collection[domain.Album, *domain.Album]
	Predictions   *db.Collection[domain.Prediction, *domain.Prediction]
	Diaas         *db.Collection[domain.Diaa, *domain.Diaa]
	Scripts       *db.Collection[domain.ScriptDeployment, *domain.ScriptDeployment]
	OnlineAPIs    *db.Collection[domain.OnlineAPI, *domain.OnlineAPI]
	Projects      *db.Collection[domain.Project, *domain.Project]
	ProjectLinks  *db.Collection[domain.ProjectLink, *domain.ProjectLink]
	Shares        *db.Collection[domain.Share, *domain.Share]
	Processes     *db.Collection[domain.Process, *domain.Process]
	Notifications *db.Collection[domain.Notification, *domain.Notification]

	driver db.Driver
}

func NewDatabase(d db.Driver, opt ...db.Option) *Database {
	return &Database{
		Users:         db.NewCollection[domain.User](d, "users", opt...),
		Tables:        db.NewCollection[domain.Table](d, "tables", opt...),
		Datasets:      db.NewCollection[domain.Dataset](d, "datasets", opt...),
		Flows:         db.NewCollection[domain.Flow](d, "flows", opt...),
		Replays:       db.NewCollection[domain.Replay](d, "replays", opt...),
		Models:        db.NewCollection[domain.Model](d, "models", opt...),
		CVModels:      db.NewCollection[domain.CVModel](d, "cvmodels", opt...),
		Experiments:   db.NewCollection[domain.Experiment](d, "experiments", opt...),
		Albums:        db.NewCollection[domain.Album](d, "albums", opt...),
		Predictions:   db.NewCollection[domain.Prediction](d, "predictions", opt...),
		Diaas:         db.NewCollection[domain.Diaa](d, "diaas", opt...),
		Scripts:       db.NewCollection[domain.ScriptDeployment](d, "scripts", opt...),
		OnlineAPIs:    db.NewCollection[domain.OnlineAPI](d, "onlineapis", opt...),
		Projects:      db.NewCollection[domain.Project](d, "projects", opt...),
		ProjectLinks:  db.NewCollection[domain.ProjectLink](d, "projectlinks", opt...),
		Shares:        db.NewCollection[domain.Share](d, "shares", opt...),
		Processes:     db.NewCollection[domain.Process](d, "processes", opt...),
		Notifications: db.NewCollection[domain.Notification](d, "notifications", opt...),

		driver: d,
	}
}

// Reset wipes every collection. The caller re-seeds afterwards.
func (f *Database) Reset() error {
	return f.driver.DeleteAll()
}

// Shrink compacts the backing store; driven by the autosave loop.
func (f *Database) Shrink() error {
	return f.driver.Shrink()
}
