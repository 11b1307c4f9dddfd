package server

import (
	"net/http"

	directivehandler "workboard/internal/directive/handler"
	proposalhandler "workboard/internal/proposal/handler"
	rosterhandler "workboard/internal/roster/handler"
	"workboard/internal/store"
	"workboard/internal/sync"
	workitemhandler "workboard/internal/workitem/handler"
	"workboard/pkg/platform/httputil"
)

// BoardSnapshotResponse is the whole board in one read: the four mirrors
// plus their commit positions and staleness flags.
type BoardSnapshotResponse struct {
	WorkItems  []workitemhandler.WorkItemResponse   `json:"work_items"`
	Users      []rosterhandler.UserResponse         `json:"users"`
	Proposals  []proposalhandler.ProposalResponse   `json:"proposals"`
	Directives []directivehandler.DirectiveResponse `json:"directives"`
	Weights    workitemhandler.WeightsResponse      `json:"weights"`
	Commits    map[string]uint64                    `json:"commits"`
	Stale      map[string]bool                      `json:"stale"`
}

func handleBoardSnapshot(syncer *sync.Syncer) http.HandlerFunc {
	collections := []store.Collection{
		store.CollectionWorkItems,
		store.CollectionUsers,
		store.CollectionProposals,
		store.CollectionDirectives,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := BoardSnapshotResponse{
			WorkItems:  workitemhandler.FromWorkItems(syncer.WorkItems()),
			Users:      make([]rosterhandler.UserResponse, 0),
			Proposals:  make([]proposalhandler.ProposalResponse, 0),
			Directives: directivehandler.FromDirectives(syncer.Directives()),
			Weights:    workitemhandler.FromWeights(syncer.Weights()),
			Commits:    make(map[string]uint64, len(collections)),
			Stale:      make(map[string]bool, len(collections)),
		}
		for _, u := range syncer.Users() {
			resp.Users = append(resp.Users, rosterhandler.FromUser(u))
		}
		for _, p := range syncer.Proposals() {
			resp.Proposals = append(resp.Proposals, proposalhandler.FromProposal(p))
		}
		for _, c := range collections {
			resp.Commits[string(c)] = syncer.Commit(c)
			resp.Stale[string(c)] = syncer.Stale(c)
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}
