package mcpserver

// DocumentFormatURI is the resource URI of DocumentFormat.
const DocumentFormatURI = "mdcal://document-format"

// DocumentFormat describes how mdcal stores documents so LLM consumers know
// which fields the tools accept and what ends up on disk.
const DocumentFormat = `# mdcal Document Format

Every document is a pair of files in the documents folder that share one id:

- ` + "`<id>.md`" + ` holds the Markdown body exactly as written.
- ` + "`<id>.meta.json`" + ` holds the metadata.

## Metadata

` + "```" + `json
{
  "title": "Quarterly review",
  "createdAt": 1717200000000,
  "updatedAt": 1717200000000,
  "startDate": 1717200000000,
  "endDate": 1717286400000,
  "status": "ready"
}
` + "```" + `

- All timestamps are Unix epoch **milliseconds**.
- ` + "`startDate`" + ` and ` + "`endDate`" + ` place the document on the calendar. A document
  appears in every month its range overlaps.
- ` + "`status`" + ` is free text. The calendar understands ` + "`none`" + `, ` + "`ready`" + `,
  ` + "`in_progress`" + `, ` + "`paused`" + ` and ` + "`completed`" + `; ` + "`cycle_status`" + ` walks
  ready → in_progress → paused → completed → ready.

## Ids

The id is derived from the title: characters that are unsafe in file names
(` + "`/ \\ : * ? \" < > |`" + ` and spaces) become ` + "`_`" + `, runs of ` + "`_`" + ` collapse,
and the result is capped at 100 characters. A clashing id gets a numeric
suffix (` + "`Plan`" + `, ` + "`Plan_1`" + `, ` + "`Plan_2`" + `).

Changing the title may move the document to a new id. Always use the id
returned by ` + "`update_document`" + ` for later calls.

## Body

Plain Markdown. Headings and ` + "`#tags`" + ` in the body are indexed for full-text
search; fenced code is not. A YAML frontmatter block with a ` + "`tags`" + ` list is
also understood.

## Example

` + "```" + `markdown
# Quarterly review

Agenda for the #planning meeting.

- revenue
- hiring
` + "```" + `
`
