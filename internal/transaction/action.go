package transaction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OperationCategory groups compensating actions by the subsystem they touch.
type OperationCategory string

// Supported operation categories. The values are the serialized operation_type strings.
const (
	CategoryFileOperation   OperationCategory = "FileOperation"
	CategoryGitOperation    OperationCategory = "GitOperation"
	CategoryBranchOperation OperationCategory = "BranchOperation"
	CategoryStashOperation  OperationCategory = "StashOperation"
	CategoryRemoteOperation OperationCategory = "RemoteOperation"
)

// ActionKind is the verb executed within a category.
type ActionKind string

// Supported action kinds.
const (
	KindRestoreFile        ActionKind = "restore"
	KindRemoveFile         ActionKind = "remove"
	KindDiscardBackup      ActionKind = "discard_backup"
	KindResetHard          ActionKind = "reset_hard"
	KindSwitchAndDelete    ActionKind = "switch_and_delete"
	KindSwitchBranch       ActionKind = "switch"
	KindDeleteBranch       ActionKind = "delete"
	KindStashPop           ActionKind = "pop"
	KindDeleteRemoteBranch ActionKind = "delete_branch"
)

// CleanupDescriptionPrefix marks actions that run on commit instead of on rollback.
const CleanupDescriptionPrefix = "cleanup:"

var kindCategories = map[ActionKind]OperationCategory{
	KindRestoreFile:        CategoryFileOperation,
	KindRemoveFile:         CategoryFileOperation,
	KindDiscardBackup:      CategoryFileOperation,
	KindResetHard:          CategoryGitOperation,
	KindSwitchAndDelete:    CategoryBranchOperation,
	KindSwitchBranch:       CategoryBranchOperation,
	KindDeleteBranch:       CategoryBranchOperation,
	KindStashPop:           CategoryStashOperation,
	KindDeleteRemoteBranch: CategoryRemoteOperation,
}

// CompensatingAction is one reversible side effect recorded during a forward pass.
// The parameters that apply depend on Kind; unused parameters stay empty.
type CompensatingAction struct {
	Category       OperationCategory
	Kind           ActionKind
	RepositoryPath string
	Description    string
	TargetPath     string
	BackupPath     string
	Reference      string
	OriginalBranch string
	CreatedBranch  string
	RemoteName     string
	BranchName     string
}

// NewRestoreFileAction restores target from backup.
func NewRestoreFileAction(repositoryPath string, targetPath string, backupPath string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryFileOperation,
		Kind:           KindRestoreFile,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("restore %s from backup", targetPath),
		TargetPath:     targetPath,
		BackupPath:     backupPath,
	}
}

// NewRemoveFileAction removes a file created by the forward pass.
func NewRemoveFileAction(repositoryPath string, targetPath string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryFileOperation,
		Kind:           KindRemoveFile,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("remove created file %s", targetPath),
		TargetPath:     targetPath,
	}
}

// NewDiscardBackupAction deletes a backup once the transaction commits.
func NewDiscardBackupAction(repositoryPath string, backupPath string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryFileOperation,
		Kind:           KindDiscardBackup,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("%s discard backup %s", CleanupDescriptionPrefix, backupPath),
		BackupPath:     backupPath,
	}
}

// NewResetHardAction resets the working tree and index to reference.
func NewResetHardAction(repositoryPath string, reference string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryGitOperation,
		Kind:           KindResetHard,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("reset --hard %s", reference),
		Reference:      reference,
	}
}

// NewSwitchAndDeleteBranchAction returns to original and force-deletes created.
func NewSwitchAndDeleteBranchAction(repositoryPath string, originalBranch string, createdBranch string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryBranchOperation,
		Kind:           KindSwitchAndDelete,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("switch to %s and delete %s", originalBranch, createdBranch),
		OriginalBranch: originalBranch,
		CreatedBranch:  createdBranch,
	}
}

// NewSwitchBranchAction returns to original.
func NewSwitchBranchAction(repositoryPath string, originalBranch string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryBranchOperation,
		Kind:           KindSwitchBranch,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("switch to %s", originalBranch),
		OriginalBranch: originalBranch,
	}
}

// NewDeleteBranchAction force-deletes created.
func NewDeleteBranchAction(repositoryPath string, createdBranch string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryBranchOperation,
		Kind:           KindDeleteBranch,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("delete branch %s", createdBranch),
		CreatedBranch:  createdBranch,
	}
}

// NewStashPopAction pops the most recent stash entry.
func NewStashPopAction(repositoryPath string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryStashOperation,
		Kind:           KindStashPop,
		RepositoryPath: repositoryPath,
		Description:    "stash pop",
	}
}

// NewDeleteRemoteBranchAction deletes branch from remote.
func NewDeleteRemoteBranchAction(repositoryPath string, remoteName string, branchName string) CompensatingAction {
	return CompensatingAction{
		Category:       CategoryRemoteOperation,
		Kind:           KindDeleteRemoteBranch,
		RepositoryPath: repositoryPath,
		Description:    fmt.Sprintf("delete %s/%s", remoteName, branchName),
		RemoteName:     remoteName,
		BranchName:     branchName,
	}
}

// IsCleanup reports whether the action runs on commit rather than on rollback.
func (action CompensatingAction) IsCleanup() bool {
	return strings.HasPrefix(action.Description, CleanupDescriptionPrefix)
}

// Validate checks that the kind belongs to the category and that its parameters are present.
func (action CompensatingAction) Validate() error {
	expectedCategory, known := kindCategories[action.Kind]
	if !known {
		return InvalidActionError{Action: action, Reason: fmt.Sprintf("unknown kind %q", action.Kind)}
	}
	if expectedCategory != action.Category {
		return InvalidActionError{Action: action, Reason: fmt.Sprintf("kind %q does not belong to %s", action.Kind, action.Category)}
	}
	if len(strings.TrimSpace(action.RepositoryPath)) == 0 {
		return InvalidActionError{Action: action, Reason: "repository path is required"}
	}
	for _, parameter := range action.positionalParameters() {
		if len(strings.TrimSpace(parameter)) == 0 {
			return InvalidActionError{Action: action, Reason: "missing parameter"}
		}
	}
	return nil
}

func (action CompensatingAction) positionalParameters() []string {
	switch action.Kind {
	case KindRestoreFile:
		return []string{action.TargetPath, action.BackupPath}
	case KindRemoveFile:
		return []string{action.TargetPath}
	case KindDiscardBackup:
		return []string{action.BackupPath}
	case KindResetHard:
		return []string{action.Reference}
	case KindSwitchAndDelete:
		return []string{action.OriginalBranch, action.CreatedBranch}
	case KindSwitchBranch:
		return []string{action.OriginalBranch}
	case KindDeleteBranch:
		return []string{action.CreatedBranch}
	case KindDeleteRemoteBranch:
		return []string{action.RemoteName, action.BranchName}
	default:
		return nil
	}
}

func (action *CompensatingAction) assignPositionalParameters(parameters []string) error {
	expectedCount := map[ActionKind]int{
		KindRestoreFile:        2,
		KindRemoveFile:         1,
		KindDiscardBackup:      1,
		KindResetHard:          1,
		KindSwitchAndDelete:    2,
		KindSwitchBranch:       1,
		KindDeleteBranch:       1,
		KindStashPop:           0,
		KindDeleteRemoteBranch: 2,
	}[action.Kind]
	if len(parameters) < expectedCount {
		return fmt.Errorf("%s expects %d parameters, found %d", action.Kind, expectedCount, len(parameters))
	}

	switch action.Kind {
	case KindRestoreFile:
		action.TargetPath, action.BackupPath = parameters[0], parameters[1]
	case KindRemoveFile:
		action.TargetPath = parameters[0]
	case KindDiscardBackup:
		action.BackupPath = parameters[0]
	case KindResetHard:
		action.Reference = parameters[0]
	case KindSwitchAndDelete:
		action.OriginalBranch, action.CreatedBranch = parameters[0], parameters[1]
	case KindSwitchBranch:
		action.OriginalBranch = parameters[0]
	case KindDeleteBranch:
		action.CreatedBranch = parameters[0]
	case KindDeleteRemoteBranch:
		action.RemoteName, action.BranchName = parameters[0], parameters[1]
	}
	return nil
}

type serializedAction struct {
	Description   string   `json:"description"`
	OperationType string   `json:"operation_type"`
	RepoPath      string   `json:"repo_path"`
	Parameters    []string `json:"parameters"`
}

// MarshalJSON writes the action as {description, operation_type, repo_path, parameters}
// where the first parameter is the kind.
func (action CompensatingAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializedAction{
		Description:   action.Description,
		OperationType: string(action.Category),
		RepoPath:      action.RepositoryPath,
		Parameters:    append([]string{string(action.Kind)}, action.positionalParameters()...),
	})
}

// UnmarshalJSON reconstructs a typed action from its serialized form.
func (action *CompensatingAction) UnmarshalJSON(data []byte) error {
	var serialized serializedAction
	if decodeError := json.Unmarshal(data, &serialized); decodeError != nil {
		return decodeError
	}
	if len(serialized.Parameters) == 0 {
		return fmt.Errorf("action %q has no parameters", serialized.Description)
	}

	decoded := CompensatingAction{
		Category:       OperationCategory(serialized.OperationType),
		Kind:           ActionKind(serialized.Parameters[0]),
		RepositoryPath: serialized.RepoPath,
		Description:    serialized.Description,
	}
	if _, known := kindCategories[decoded.Kind]; !known {
		return fmt.Errorf("action %q has unknown kind %q", serialized.Description, decoded.Kind)
	}
	if assignError := decoded.assignPositionalParameters(serialized.Parameters[1:]); assignError != nil {
		return assignError
	}
	*action = decoded
	return nil
}
