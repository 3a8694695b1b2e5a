package adapter

import (
	"html"
	"regexp"
	"strings"
)

var (
	hiddenBlockRe = regexp.MustCompile(`(?i)<div style="display:none">[\s\S]*?</div>`)
	multiBrRe     = regexp.MustCompile(`(?i)(<br>\s){2}`)
	multiBrEndRe  = regexp.MustCompile(`(?i)(<br />\n?){2}`)
	brBugRe       = regexp.MustCompile(`(?i)<br />`)
	emptyAnchorRe = regexp.MustCompile(`(?i)<a name=".*?"></a>`)

	// A metadata region starts at a known key and runs to the next delimiter.
	metaRegionRe = regexp.MustCompile(`(?i)(title:|layout:|tags:|date:|categories:)[\s\S]+?---`)
	anyBrRe      = regexp.MustCompile(`(?i)<br />|<br>|<br/>`)

	metaBlockRe = regexp.MustCompile(`\A---\n([\s\S]*?)\n---\n([\s\S]*)\z`)

	calloutOpenRe  = regexp.MustCompile(`(?im)^:::(tips|danger|info)[ \t]*\n`)
	calloutCloseRe = regexp.MustCompile(`(?m)\s+^:::[ \t]*$`)
)

var calloutStyles = map[string]string{
	"tips":   `<div style="background: #FFFBE6;padding:10px;border: 1px solid #C3C3C3;border-radius:5px;margin-bottom:5px;">`,
	"danger": `<div style="background: #FFF3F3;padding:10px;border: 1px solid #DEB8BE;border-radius:5px;margin-bottom:5px;">`,
	"info":   `<div style="background: #E8F7FF;padding:10px;border: 1px solid #ABD2DA;border-radius:5px;margin-bottom:5px;">`,
}

// unescape decodes HTML entities left by the source editor.
func unescape(body string) string {
	return html.UnescapeString(body)
}

// cleanup removes editor artifacts: hidden blocks, repeated line breaks,
// the malformed self-closing break and empty anchors.
func cleanup(body string) string {
	body = hiddenBlockRe.ReplaceAllString(body, "")
	body = multiBrRe.ReplaceAllString(body, "<br>")
	body = multiBrEndRe.ReplaceAllString(body, "<br />\n")
	body = brBugRe.ReplaceAllString(body, "\n")
	body = emptyAnchorRe.ReplaceAllString(body, "")
	return body
}

// normalizeMetaBreaks turns break markers inside a metadata region into
// real newlines so the block can be parsed as YAML.
func normalizeMetaBreaks(body string) string {
	return metaRegionRe.ReplaceAllStringFunc(body, func(region string) string {
		return anyBrRe.ReplaceAllString(region, "\n")
	})
}

// callouts rewrites :::tips, :::danger and :::info blocks into styled
// containers. A ::: line closes the container.
func callouts(body string) string {
	body = calloutOpenRe.ReplaceAllStringFunc(body, func(m string) string {
		kind := strings.ToLower(calloutOpenRe.FindStringSubmatch(m)[1])
		return calloutStyles[kind]
	})
	return calloutCloseRe.ReplaceAllString(body, "</div>")
}

// splitMetadata separates a leading ---/--- metadata block from the body.
// ok is false when no block is present.
func splitMetadata(body string) (block, content string, ok bool) {
	m := metaBlockRe.FindStringSubmatch(body)
	if m == nil {
		return "", body, false
	}
	return m[1], m[2], true
}
