package mcpserver

// FolderOperationsContract describes how LLM consumers should call the
// manage_folder tool.
const FolderOperationsContract = `# Vaultfold Folder Operations Contract

Every call to ` + "`" + `manage_folder` + "`" + ` names one ` + "`" + `operation` + "`" + ` and a folder ` + "`" + `path` + "`" + `
relative to the vault root. Paths use forward slashes; ` + "`" + `..` + "`" + ` segments, absolute paths
and symbolic links that leave the vault are rejected.

## Operations

| operation | required | optional (default) |
|---|---|---|
| create | path | create_parents (true), dry_run |
| rename | path, new_name | update_references (true), dry_run |
| move | path, destination | update_references (true), dry_run |
| delete | path, confirm_path | force (false), check_references (true), dry_run |
| list | (none) | path, recursive (false), max_depth, include_stats (true), offset (0), page_size (50) |

## Rules

1. **Create is idempotent.** Creating an existing folder succeeds with ` + "`" + `created: false` + "`" + `.
2. **Rename changes the last segment only.** ` + "`" + `new_name` + "`" + ` must not contain a slash.
3. **Move keeps the name.** ` + "`" + `destination` + "`" + ` is the new parent folder; the folder lands at
   ` + "`" + `destination/<name>` + "`" + `. An empty destination is the vault root. A folder cannot be moved
   into itself or one of its subfolders.
4. **Delete needs confirmation.** ` + "`" + `confirm_path` + "`" + ` must equal ` + "`" + `path` + "`" + `. Non-empty folders also
   need ` + "`" + `force: true` + "`" + `. Notes that link into a deleted folder are listed in ` + "`" + `affected_notes` + "`" + `.
5. **Wikilinks follow the folder.** Rename and move rewrite ` + "`" + `[[old/path/note]]` + "`" + `,
   ` + "`" + `[[old/path/note#heading|alias]]` + "`" + ` and ` + "`" + `![[old/path/image.png]]` + "`" + ` to the new location,
   keeping anchors and aliases. Links inside code blocks and inline code are left alone.
6. **Protected folders** (` + "`" + `.obsidian` + "`" + `, ` + "`" + `.git` + "`" + `, ` + "`" + `.trash` + "`" + `, ` + "`" + `node_modules` + "`" + ` by default) and the
   vault root cannot be the source or destination of a change.
7. **Lists are paginated.** Follow ` + "`" + `next_offset` + "`" + ` while ` + "`" + `has_more` + "`" + ` is true. Recursion stops at
   10 levels.
8. **Dry run first.** ` + "`" + `dry_run: true` + "`" + ` validates everything and reports how many references
   would be rewritten without changing the vault.

## Results

A successful call returns JSON with ` + "`" + `success` + "`" + `, ` + "`" + `message` + "`" + `, ` + "`" + `metadata` + "`" + ` and ` + "`" + `warnings` + "`" + `.
Warnings describe partial problems (for example a note that could not be rewritten); the folder
change itself has still happened. ` + "`" + `incomplete: true` + "`" + ` means the call ran out of time before
anything was changed.

Failures are returned as tool errors of the form ` + "`" + `<operation> <path>: <reason>; <what to do next>` + "`" + `.

## Example

` + "```" + `json
{"operation": "move", "path": "inbox/idea", "destination": "archive/2025", "dry_run": true}
` + "```" + `
`
