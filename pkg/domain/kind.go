package domain

import "fmt"

// Kind tags every asset type the workbench knows.
type Kind string

const (
	KindTable            Kind = "TABLE"
	KindDataset          Kind = "DATASET"
	KindFlow             Kind = "FLOW"
	KindReplay           Kind = "REPLAY"
	KindModel            Kind = "MODEL"
	KindCVModel          Kind = "CV_MODEL"
	KindAlbum            Kind = "ALBUM"
	KindExperiment       Kind = "EXPERIMENT"
	KindPrediction       Kind = "PREDICTION"
	KindDiaa             Kind = "DIAA"
	KindScriptDeployment Kind = "SCRIPT_DEPLOYMENT"
	KindOnlineAPI        Kind = "ONLINE_API"
	KindProject          Kind = "PROJECT"
	KindProcess          Kind = "PROCESS"
	KindNotification     Kind = "NOTIFICATION"
	KindUser             Kind = "USER"
)

func (k Kind) String() string {
	return string(k)
}

// ProcessTargets lists every Kind a background process may point at.
//
// The simulator's completion and cancellation tables are checked against this
// list on startup; a target kind missing from either table is a wiring bug,
// not a runtime condition.
func ProcessTargets() []Kind {
	return []Kind{
		KindTable,
		KindFlow,
		KindReplay,
		KindModel,
		KindCVModel,
		KindAlbum,
		KindPrediction,
		KindDiaa,
		KindScriptDeployment,
		KindOnlineAPI,
	}
}

func AsKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTable, KindDataset, KindFlow, KindReplay, KindModel, KindCVModel,
		KindAlbum, KindExperiment, KindPrediction, KindDiaa,
		KindScriptDeployment, KindOnlineAPI, KindProject, KindProcess,
		KindNotification, KindUser:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("'%s' is not an asset kind", s)
	}
}
