package supervisor

import (
	"context"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/vcs"
)

// DiffLayer returns the per-branch diff summary for one dependency layer,
// used by the `diff` command during code-review.
func (s *Supervisor) DiffLayer(ctx context.Context, layer int) ([]vcs.BranchDiff, error) {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return nil, err
	}
	return vcs.NewWorktreeManager(client).DiffLayer(ctx, layer)
}

// MergeBranch merges one layer branch into main, used by the `merge`
// command during code-review.
func (s *Supervisor) MergeBranch(ctx context.Context, branch string) (*vcs.MergeResult, error) {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return nil, err
	}
	return vcs.NewWorktreeManager(client).MergeLayerBranch(ctx, branch)
}

// ResolveConflict applies a mechanical (ours/theirs) conflict resolution to
// one path of an in-progress merge.
func (s *Supervisor) ResolveConflict(ctx context.Context, path string, strategy vcs.ConflictStrategy) error {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return err
	}
	return vcs.NewWorktreeManager(client).ResolveConflictFile(ctx, path, strategy)
}

// ResolveConflictAI resolves one conflicted file of an in-progress merge
// with a single model call carrying the three stage contents and the
// current layer's task context.
func (s *Supervisor) ResolveConflictAI(ctx context.Context, iterID, path string) (*vcs.AIResolution, error) {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return nil, err
	}
	team, err := s.Store.LoadTeam()
	if err != nil {
		return nil, err
	}
	r, err := s.buildRoster(team)
	if err != nil {
		return nil, err
	}
	resolver := r.clients[team.Agents[0].Name]
	if team.Coach != nil {
		resolver = r.clients[team.Coach.Name]
	}

	taskContext := ""
	if _, tasks, loadErr := s.LoadIteration(iterID); loadErr == nil {
		taskContext = summarizeTasks(tasks)
	}
	return vcs.NewWorktreeManager(client).ResolveConflictAI(ctx, resolver, path, taskContext)
}

// AbortMerge restores pre-merge state of an in-progress merge.
func (s *Supervisor) AbortMerge(ctx context.Context) error {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return err
	}
	return vcs.NewWorktreeManager(client).AbortMerge(ctx)
}

// FinalizeMerge commits an in-progress merge once every conflict is staged.
func (s *Supervisor) FinalizeMerge(ctx context.Context) (string, error) {
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return "", err
	}
	return vcs.NewWorktreeManager(client).FinalizeMerge(ctx)
}

// PendingApprovals lists every approval awaiting a decision for one
// iteration.
func (s *Supervisor) PendingApprovals(iterID string) ([]*core.ApprovalRequest, error) {
	store, err := s.approvals(iterID)
	if err != nil {
		return nil, err
	}
	return store.Pending(), nil
}

// ApproveWrite approves a pending write and applies it, bypassing the
// writable-paths check since a human has now reviewed it directly. With
// worktrees enabled the write lands in the requesting agent's worktree for
// the current layer, not the main tree, so per-agent isolation holds.
func (s *Supervisor) ApproveWrite(ctx context.Context, iterID, approvalID string) error {
	store, err := s.approvals(iterID)
	if err != nil {
		return err
	}
	req, err := store.Approve(approvalID)
	if err != nil {
		return err
	}
	mediator, err := s.mediatorForApproval(ctx, iterID, req.Agent, store)
	if err != nil {
		return err
	}
	if err := mediator.ApplyApprovedWrite(req.Path, []byte(req.Content)); err != nil {
		return err
	}
	return store.MarkApplied(approvalID)
}

// mediatorForApproval resolves where an approved write should land: the
// requesting agent's worktree for the iteration's current layer when
// worktrees are enabled, the project root otherwise.
func (s *Supervisor) mediatorForApproval(ctx context.Context, iterID, agent string, store *filemediator.ApprovalStore) (*filemediator.Mediator, error) {
	base := filemediator.New(s.Store.Root(), core.DefaultFileAccessConfig(), store)

	team, err := s.Store.LoadTeam()
	if err != nil || !team.Worktrees.Enabled {
		return base, nil
	}
	it, err := s.Store.FindIteration(iterID)
	if err != nil || it.CurrentLayer == nil {
		return base, nil
	}
	client, err := vcs.NewClient(s.Store.Root())
	if err != nil {
		return base, nil
	}
	wt, err := vcs.NewWorktreeManager(client).EnsureWorktree(ctx, agent, *it.CurrentLayer, "main")
	if err != nil {
		return nil, err
	}
	return base.WithRoot(wt.Path), nil
}

// DenyWrite denies a pending write with a reason.
func (s *Supervisor) DenyWrite(iterID, approvalID, reason string) error {
	store, err := s.approvals(iterID)
	if err != nil {
		return err
	}
	_, err = store.Deny(approvalID, reason)
	return err
}
