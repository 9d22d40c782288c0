// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	SourcePathNotFoundId
	NoSourcesId
	FnlDirMissingId
	SearchFailedId
	NotConvergedId
	ReferenceCycleId
	FetchFailedId
	SetupScriptFailedId
	BuildToolNotFoundId
	BuildFailedId
	UnknownHandleId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Search locations (in order of precedence):
1. The file given with --config
2. config.cue in the fnlbuild config directory
3. fnlbuild.cue in the current directory

## Things you can try:
- Print the effective configuration:
~~~
$ fnlbuild config show
~~~
- Write a fresh default file and edit it:
~~~
$ fnlbuild config init
~~~
- Check FNLBUILD_* environment variables, which override the file`,
	}

	sourcePathNotFoundIssue = &Issue{
		id: SourcePathNotFoundId,
		mdMsg: `
# Source path not found!

One of the files or directories passed on the command line does not exist.

## Things you can try:
- Check the spelling of the path
- Run from the directory the relative paths are based on, or use -C`,
	}

	noSourcesIssue = &Issue{
		id: NoSourcesId,
		mdMsg: `
# No source files to resolve!

Every file under the given paths was excluded, or --changed found no
modified files.

## Things you can try:
- Review exclude_dirs and exclude_files in your configuration
- Run with -v to see which files and directories were excluded`,
	}

	fnlDirMissingIssue = &Issue{
		id: FnlDirMissingId,
		mdMsg: `
# Build-description directory not found!

--read-fnls uses a local copy of the build-description files, but the
directory does not exist yet.

## Things you can try:
- Populate it once with:
~~~
$ fnlbuild resolve --write-fnls <paths>
~~~
- Point at another copy with --fnl-dir`,
	}

	searchFailedIssue = &Issue{
		id: SearchFailedId,
		mdMsg: `
# Searching the build descriptions failed!

The catalog searcher could not scan the build-description files.

## Things you can try:
- When catalog.search_backend is "grep", check that catalog.grep_path points to a working grep
- Switch to the builtin searcher:
~~~
$ fnlbuild resolve --search builtin <paths>
~~~`,
	}

	notConvergedIssue = &Issue{
		id: NotConvergedId,
		mdMsg: `
# Resolution did not finish!

Every pass kept discovering new build handles until the pass limit or the
timeout was reached.

## Things you can try:
- Raise catalog.max_passes or catalog.timeout_seconds
- Look for generated build descriptions that reference each other without end`,
	}

	referenceCycleIssue = &Issue{
		id: ReferenceCycleId,
		mdMsg: `
# Reference cycle between build handles!

Two or more build descriptions list each other, so no build order exists.

## Things you can try:
- Remove one of the references listed in the error
- Run with --log-only -v to see the full resolution log`,
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Fetching build descriptions failed!

The version control commands used to populate the local copy did not succeed.

## Things you can try:
- Run the configured fetch.list_command by hand in the target directory
- Check that your environment is set up for the version control tool
- Use --read-fnls to work from an existing local copy`,
	}

	setupScriptFailedIssue = &Issue{
		id: SetupScriptFailedId,
		mdMsg: `
# Environment setup script failed!

The env.setup_script from your configuration exited with an error, so the
build environment could not be prepared.

## Things you can try:
- Run the script in a shell to see the failing command
- Remove env.setup_script and set env.vars or env.env_files instead`,
	}

	buildToolNotFoundIssue = &Issue{
		id: BuildToolNotFoundId,
		mdMsg: `
# Build tool not found!

The build command from build.command could not be started.

## Things you can try:
- Check that the build tool is on your PATH
- Set build.command to the full path of the tool`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

The build tool reported an error for one of the build handles. Later
handles were not built.

## Things you can try:
- Read the build output above, it is also saved in stdout.log in the results directory
- Rebuild only the failing handle:
~~~
$ fnlbuild build --only <handle> <paths>
~~~`,
	}

	unknownHandleIssue = &Issue{
		id: UnknownHandleId,
		mdMsg: `
# Unknown build handle!

A handle passed with --only is not part of the resolved build order.

## Things you can try:
- List the resolved handles:
~~~
$ fnlbuild resolve <paths>
~~~
- Pick handles interactively with --pick`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		sourcePathNotFoundIssue.Id(): sourcePathNotFoundIssue,
		noSourcesIssue.Id():          noSourcesIssue,
		fnlDirMissingIssue.Id():      fnlDirMissingIssue,
		searchFailedIssue.Id():       searchFailedIssue,
		notConvergedIssue.Id():       notConvergedIssue,
		referenceCycleIssue.Id():     referenceCycleIssue,
		fetchFailedIssue.Id():        fetchFailedIssue,
		setupScriptFailedIssue.Id():  setupScriptFailedIssue,
		buildToolNotFoundIssue.Id():  buildToolNotFoundIssue,
		buildFailedIssue.Id():        buildFailedIssue,
		unknownHandleIssue.Id():      unknownHandleIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
