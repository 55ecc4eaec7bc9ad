package githubcli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/gx/internal/execshell"
	"github.com/temirov/gx/internal/githubauth"
)

const (
	pullRequestSubcommandConstant           = "pr"
	createSubcommandConstant                = "create"
	closeSubcommandConstant                 = "close"
	listSubcommandConstant                  = "list"
	reviewSubcommandConstant                = "review"
	mergeSubcommandConstant                 = "merge"
	apiSubcommandConstant                   = "api"
	repoFlagConstant                        = "--repo"
	headFlagConstant                        = "--head"
	baseFlagConstant                        = "--base"
	titleFlagConstant                       = "--title"
	bodyFlagConstant                        = "--body"
	draftFlagConstant                       = "--draft"
	stateFlagConstant                       = "--state"
	jsonFlagConstant                        = "--json"
	limitFlagConstant                       = "--limit"
	approveFlagConstant                     = "--approve"
	deleteBranchFlagConstant                = "--delete-branch"
	adminFlagConstant                       = "--admin"
	paginateFlagConstant                    = "--paginate"
	jqFlagConstant                          = "--jq"
	methodFlagConstant                      = "-X"
	httpMethodDeleteConstant                = "DELETE"
	branchNamesQueryConstant                = ".[].name"
	branchesEndpointTemplateConstant        = "repos/%s/branches"
	branchReferenceEndpointTemplateConstant = "repos/%s/git/refs/heads/%s"
	pullRequestURLSegmentConstant           = "/pull/"
	pullRequestJSONFieldsConstant           = "number,title,headRefName,url,state"
	pullRequestLimitDefaultValueConstant    = 100
	repositoryFieldNameConstant             = "repository"
	branchFieldNameConstant                 = "branch"
	titleFieldNameConstant                  = "title"
	numberFieldNameConstant                 = "number"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "positive value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	closePullRequestOperationNameConstant   = OperationName("ClosePullRequest")
	approvePullRequestOperationNameConstant = OperationName("ApprovePullRequest")
	mergePullRequestOperationNameConstant   = OperationName("MergePullRequest")
	listPullRequestsOperationNameConstant   = OperationName("ListPullRequestsByChangeID")
	listBranchesOperationNameConstant       = OperationName("ListBranchesWithPrefix")
	deleteRemoteBranchOperationNameConstant = OperationName("DeleteRemoteBranch")
)

var alreadyGoneMarkers = []string{
	"not found",
	"does not exist",
	"already closed",
	"could not resolve to a pullrequest",
}

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestState describes GitHub pull request states.
type PullRequestState string

// Pull request state enumerations.
const (
	PullRequestStateOpen   PullRequestState = PullRequestState("open")
	PullRequestStateClosed PullRequestState = PullRequestState("closed")
	PullRequestStateMerged PullRequestState = PullRequestState("merged")
	PullRequestStateAll    PullRequestState = PullRequestState("all")
)

// MergeMethod selects how gh merges a pull request.
type MergeMethod string

// Merge method enumerations.
const (
	MergeMethodSquash MergeMethod = MergeMethod("squash")
	MergeMethodMerge  MergeMethod = MergeMethod("merge")
	MergeMethodRebase MergeMethod = MergeMethod("rebase")
)

// PullRequest represents pull request details returned by GitHub CLI.
type PullRequest struct {
	Number      int    `json:"number" yaml:"number"`
	Title       string `json:"title" yaml:"title"`
	HeadRefName string `json:"headRefName" yaml:"head"`
	URL         string `json:"url" yaml:"url"`
	State       string `json:"state" yaml:"state"`
}

// PullRequestCreateOptions configures CreatePullRequest.
type PullRequestCreateOptions struct {
	HeadBranch string
	BaseBranch string
	Title      string
	Body       string
	Draft      bool
}

// MergeOptions configures ApproveAndMergePullRequest.
type MergeOptions struct {
	Method        MergeMethod
	AdminOverride bool
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor    GitHubCommandExecutor
	environment map[string]string
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// IsNotFound reports whether the error says the pull request or branch is already gone.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	loweredMessage := strings.ToLower(err.Error())
	for _, marker := range alreadyGoneMarkers {
		if strings.Contains(loweredMessage, marker) {
			return true
		}
	}
	return false
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, environment: githubauth.CommandEnvironment(nil)}, nil
}

func (client *Client) commandDetails(arguments []string) execshell.CommandDetails {
	return execshell.CommandDetails{Arguments: arguments, EnvironmentVariables: client.environment}
}

// CreatePullRequest opens a pull request for a pushed branch and returns its number and URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repository string, options PullRequestCreateOptions) (PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.HeadBranch)) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		headFlagConstant,
		options.HeadBranch,
		titleFlagConstant,
		options.Title,
		bodyFlagConstant,
		options.Body,
	}
	if baseBranch := strings.TrimSpace(options.BaseBranch); len(baseBranch) > 0 {
		arguments = append(arguments, baseFlagConstant, baseBranch)
	}
	if options.Draft {
		arguments = append(arguments, draftFlagConstant)
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(arguments))
	if executionError != nil {
		return PullRequest{}, OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	pullRequestURL := lastNonEmptyLine(executionResult.StandardOutput)
	return PullRequest{
		Number:      pullRequestNumberFromURL(pullRequestURL),
		Title:       options.Title,
		HeadRefName: options.HeadBranch,
		URL:         pullRequestURL,
		State:       string(PullRequestStateOpen),
	}, nil
}

// ClosePullRequest closes a pull request, optionally deleting its head branch.
func (client *Client) ClosePullRequest(executionContext context.Context, repository string, number int, deleteBranch bool) error {
	if validationError := validateRepositoryAndNumber(repository, number); validationError != nil {
		return validationError
	}

	arguments := []string{pullRequestSubcommandConstant, closeSubcommandConstant, strconv.Itoa(number), repoFlagConstant, strings.TrimSpace(repository)}
	if deleteBranch {
		arguments = append(arguments, deleteBranchFlagConstant)
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(arguments)); executionError != nil {
		return OperationError{Operation: closePullRequestOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ApproveAndMergePullRequest approves a pull request and merges it, deleting the head branch.
func (client *Client) ApproveAndMergePullRequest(executionContext context.Context, repository string, number int, options MergeOptions) error {
	if validationError := validateRepositoryAndNumber(repository, number); validationError != nil {
		return validationError
	}
	repositoryIdentifier := strings.TrimSpace(repository)
	numberArgument := strconv.Itoa(number)

	approveArguments := []string{pullRequestSubcommandConstant, reviewSubcommandConstant, numberArgument, repoFlagConstant, repositoryIdentifier, approveFlagConstant}
	if _, approveError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(approveArguments)); approveError != nil {
		return OperationError{Operation: approvePullRequestOperationNameConstant, Cause: approveError}
	}

	method := options.Method
	if len(method) == 0 {
		method = MergeMethodSquash
	}
	mergeArguments := []string{pullRequestSubcommandConstant, mergeSubcommandConstant, numberArgument, repoFlagConstant, repositoryIdentifier, "--" + string(method), deleteBranchFlagConstant}
	if options.AdminOverride {
		mergeArguments = append(mergeArguments, adminFlagConstant)
	}
	if _, mergeError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(mergeArguments)); mergeError != nil {
		return OperationError{Operation: mergePullRequestOperationNameConstant, Cause: mergeError}
	}
	return nil
}

// ListPullRequestsByChangeID lists open pull requests whose head branch is the change identifier.
func (client *Client) ListPullRequestsByChangeID(executionContext context.Context, repository string, changeID string, state PullRequestState) ([]PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedChangeID := strings.TrimSpace(changeID)
	if len(trimmedChangeID) == 0 {
		return nil, InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(state) == 0 {
		state = PullRequestStateOpen
	}

	commandDetails := client.commandDetails([]string{
		pullRequestSubcommandConstant,
		listSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		headFlagConstant,
		trimmedChangeID,
		stateFlagConstant,
		string(state),
		jsonFlagConstant,
		pullRequestJSONFieldsConstant,
		limitFlagConstant,
		strconv.Itoa(pullRequestLimitDefaultValueConstant),
	})

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: executionError}
	}

	var pullRequests []PullRequest
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &pullRequests); decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
	}
	return pullRequests, nil
}

// ListBranchesWithPrefix returns the remote branch names that start with prefix.
func (client *Client) ListBranchesWithPrefix(executionContext context.Context, repository string, prefix string) ([]string, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := client.commandDetails([]string{
		apiSubcommandConstant,
		fmt.Sprintf(branchesEndpointTemplateConstant, repositoryIdentifier),
		paginateFlagConstant,
		jqFlagConstant,
		branchNamesQueryConstant,
	})

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listBranchesOperationNameConstant, Cause: executionError}
	}

	var matchingBranches []string
	scanner := bufio.NewScanner(strings.NewReader(executionResult.StandardOutput))
	for scanner.Scan() {
		branchName := strings.TrimSpace(scanner.Text())
		if len(branchName) == 0 || !strings.HasPrefix(branchName, prefix) {
			continue
		}
		matchingBranches = append(matchingBranches, branchName)
	}
	return matchingBranches, nil
}

// DeleteRemoteBranch deletes a branch reference through the GitHub API.
func (client *Client) DeleteRemoteBranch(executionContext context.Context, repository string, branch string) error {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedBranch := strings.TrimSpace(branch)
	if len(trimmedBranch) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := client.commandDetails([]string{
		apiSubcommandConstant,
		methodFlagConstant,
		httpMethodDeleteConstant,
		fmt.Sprintf(branchReferenceEndpointTemplateConstant, repositoryIdentifier, trimmedBranch),
	})

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: deleteRemoteBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

func validateRepositoryAndNumber(repository string, number int) error {
	if len(strings.TrimSpace(repository)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if number <= 0 {
		return InvalidInputError{FieldName: numberFieldNameConstant, Message: positiveValueMessageConstant}
	}
	return nil
}

func lastNonEmptyLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for lineIndex := len(lines) - 1; lineIndex >= 0; lineIndex-- {
		if trimmedLine := strings.TrimSpace(lines[lineIndex]); len(trimmedLine) > 0 {
			return trimmedLine
		}
	}
	return ""
}

func pullRequestNumberFromURL(pullRequestURL string) int {
	segmentIndex := strings.LastIndex(pullRequestURL, pullRequestURLSegmentConstant)
	if segmentIndex == -1 {
		return 0
	}
	number, parseError := strconv.Atoi(strings.Trim(pullRequestURL[segmentIndex+len(pullRequestURLSegmentConstant):], "/"))
	if parseError != nil {
		return 0
	}
	return number
}
