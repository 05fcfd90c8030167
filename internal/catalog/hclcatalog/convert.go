package hclcatalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted optional expressions with a zero-width
// placeholder, so the source range is the reliable signal.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// staticValue evaluates an expression without variables or functions.
func staticValue(expr hcl.Expression, attr string) (cty.Value, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("attribute %q: %w", attr, diags)
	}
	if !val.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("attribute %q must be a static value", attr)
	}
	return val, nil
}

// numberAttr reads a numeric attribute and returns it in its textual form,
// ready for the catalog sanitizers. Strings pass through untouched so that
// spreadsheet notation such as "3,5" keeps working.
func numberAttr(ctx context.Context, expr hcl.Expression, attr string) (string, error) {
	if !isExprDefined(expr) {
		return "", nil
	}
	val, err := staticValue(expr, attr)
	if err != nil {
		return "", err
	}
	if val.IsNull() {
		return "", nil
	}

	if val.Type() == cty.String {
		return val.AsString(), nil
	}

	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return "", fmt.Errorf("attribute %q must be a number or a string, got %s", attr, val.Type().FriendlyName())
	}
	var f float64
	if err := gocty.FromCtyValue(num, &f); err != nil {
		return "", fmt.Errorf("attribute %q: %w", attr, err)
	}
	ctxlog.FromContext(ctx).Debug("Decoded numeric attribute.", "attribute", attr, "value", f)
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// requiresAttr reads the requirement text. A list of strings is joined
// with commas, which the requirement parser treats as AND.
func requiresAttr(ctx context.Context, expr hcl.Expression) (string, error) {
	if !isExprDefined(expr) {
		return "", nil
	}
	val, err := staticValue(expr, "requires")
	if err != nil {
		return "", err
	}
	if val.IsNull() {
		return "", nil
	}

	if val.Type() == cty.String {
		return val.AsString(), nil
	}

	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return "", fmt.Errorf("attribute \"requires\" must be a string or a list of strings, got %s", val.Type().FriendlyName())
	}
	var parts []string
	if err := gocty.FromCtyValue(list, &parts); err != nil {
		return "", fmt.Errorf("attribute \"requires\": %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Decoded requirement list.", "count", len(parts))
	return strings.Join(parts, ", "), nil
}
