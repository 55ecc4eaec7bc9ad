package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	gitProtocolPrefixConstant           = "git://"
	userDelimiterConstant               = "@"
	scpPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "value required"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	slugTemplateConstant                = "%s/%s"
)

// RemoteProtocol enumerates recognised git remote protocols.
type RemoteProtocol string

// Recognised remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolGit   RemoteProtocol = RemoteProtocol("git")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// Slug renders the owner/repository identifier.
func (remote RemoteURL) Slug() string {
	return fmt.Sprintf(slugTemplateConstant, remote.Owner, remote.Repository)
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
// The owner is the path segment preceding the repository name, so nested group
// paths resolve to their innermost owner.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseURLRemote(remote, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), RemoteProtocolSSH)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseURLRemote(remote, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant), RemoteProtocolHTTPS)
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseURLRemote(remote, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant), RemoteProtocolHTTPS)
	case strings.HasPrefix(trimmedRemote, gitProtocolPrefixConstant):
		return parseURLRemote(remote, strings.TrimPrefix(trimmedRemote, gitProtocolPrefixConstant), RemoteProtocolGit)
	case strings.Contains(trimmedRemote, userDelimiterConstant) && strings.Contains(trimmedRemote, scpPathDelimiterConstant):
		return parseSCPRemote(remote, trimmedRemote)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// parseURLRemote handles [user@]host[:port]/owner/repository[.git].
func parseURLRemote(originalInput string, remainder string, protocol RemoteProtocol) (RemoteURL, error) {
	if userIndex := strings.Index(remainder, userDelimiterConstant); userIndex != -1 && userIndex < strings.Index(remainder, pathSeparatorConstant) {
		remainder = remainder[userIndex+1:]
	}

	hostSeparatorIndex := strings.Index(remainder, pathSeparatorConstant)
	if hostSeparatorIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	host := remainder[:hostSeparatorIndex]
	if portIndex := strings.Index(host, scpPathDelimiterConstant); portIndex != -1 {
		host = host[:portIndex]
	}

	owner, repository, splitError := splitOwnerAndRepository(originalInput, remainder[hostSeparatorIndex+1:])
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: repository}, nil
}

// parseSCPRemote handles user@host:owner/repository[.git].
func parseSCPRemote(originalInput string, remote string) (RemoteURL, error) {
	hostAndPath := remote[strings.Index(remote, userDelimiterConstant)+1:]
	pathSplitIndex := strings.Index(hostAndPath, scpPathDelimiterConstant)
	if pathSplitIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(originalInput, hostAndPath[pathSplitIndex+1:])
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: hostAndPath[:pathSplitIndex], Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(originalInput string, path string) (string, string, error) {
	trimmedPath := strings.Trim(strings.TrimSuffix(strings.TrimSuffix(path, pathSeparatorConstant), gitSuffixConstant), pathSeparatorConstant)
	segments := strings.Split(trimmedPath, pathSeparatorConstant)
	if len(segments) < 2 {
		return "", "", RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}

	owner := segments[len(segments)-2]
	repository := segments[len(segments)-1]
	if len(owner) == 0 || len(repository) == 0 {
		return "", "", RemoteURLParseError{Input: originalInput, Message: invalidRemoteURLMessageConstant}
	}
	return owner, repository, nil
}
