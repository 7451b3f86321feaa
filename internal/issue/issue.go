// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	KeysetNotFoundId Id = iota + 1
	ToolUnavailableId
	ToolBuildFailedId
	PackageInvalidId
	ContentUnitMissingId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	// Id identifies an entry of the issue catalogue.
	Id int

	// MarkdownMsg is the markdown body rendered for an issue.
	MarkdownMsg string

	// HttpLink is a documentation link attached to an issue.
	HttpLink string

	// Issue is a catalogue entry describing a common operator problem and
	// how to get past it.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue as terminal markdown using the given glamour style
// ("dark", "light", "notty", or a path to a style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	keysetNotFoundIssue = &Issue{
		id: KeysetNotFoundId,
		mdMsg: `
# Keyset not found!

The reader tools need your console keyset (prod.keys) to decrypt content units.

## Things you can try:
- Dump prod.keys from your own console
- Point the configuration at it:
~~~cue
keys: prod_path: "/path/to/prod.keys"
~~~`,
	}

	toolUnavailableIssue = &Issue{
		id: ToolUnavailableId,
		mdMsg: `
# Tool not available on this platform!

The requested tool is neither bundled for this operating system and
architecture nor buildable from source here.

## Things you can try:
- Run ` + "`nspatcher tools list`" + ` to see which tools are available
- Prefer another reader:
~~~cue
tools: reader_preference: "auto"
~~~`,
	}

	toolBuildFailedIssue = &Issue{
		id: ToolBuildFailedId,
		mdMsg: `
# Building a tool from source failed!

Some tools are built from their upstream sources on platforms without a
bundled binary. The build needs git network access and a C/C++ toolchain.

## Things you can try:
- Install make and a C/C++ compiler
- Check the pinned revision in your configuration (tools.revisions)
- Retry ` + "`nspatcher tools setup`" + ` once the problem is fixed`,
	}

	packageInvalidIssue = &Issue{
		id: PackageInvalidId,
		mdMsg: `
# Package could not be read!

The package did not unpack, or none of its content units could be
classified by any reader.

## Things you can try:
- Verify the file is a complete .nsp dump
- Make sure your keyset is up to date for the package's firmware
- Run with --verbose to see every reader attempt`,
	}

	contentUnitMissingIssue = &Issue{
		id: ContentUnitMissingId,
		mdMsg: `
# Required content unit missing!

A base package must carry a Program unit; an update package must carry
both a Program unit and a Control unit.

## Things you can try:
- Check that base and update belong to the same title
- Check that the update is an update package and not a DLC`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Show the effective configuration:
~~~
$ nspatcher config show
~~~
- Recreate a default configuration with ` + "`nspatcher config init`",
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Common causes:
- The tool cache directory is not writable
- A cached tool lost its executable bit
- The output directory is not writable

## Things you can try:
- Check the permissions of cache_dir and temp_dir
- Remove the tool cache so tools are provisioned again`,
	}

	issues = map[Id]*Issue{
		keysetNotFoundIssue.Id():     keysetNotFoundIssue,
		toolUnavailableIssue.Id():    toolUnavailableIssue,
		toolBuildFailedIssue.Id():    toolBuildFailedIssue,
		packageInvalidIssue.Id():     packageInvalidIssue,
		contentUnitMissingIssue.Id(): contentUnitMissingIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
	}
)

// Values returns every catalogue entry ordered by id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
