package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

// cmcontinue values look like "page|<sortkey>|<pageid>".
var reCategoryContinue = regexp.MustCompile(`^[a-z]+\|[^|]*\|[0-9]+$`)

type categoryMember struct {
	PageID int    `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

type categoryMembersResponse struct {
	Continue *struct {
		CMContinue string `json:"cmcontinue"`
	} `json:"continue"`
	Query *struct {
		CategoryMembers []categoryMember `json:"categorymembers"`
	} `json:"query"`
}

// listCategory returns one page of a category listing and the continuation value
// for the next page ("" when the listing is complete).
func listCategory(ctx context.Context, c *Client, category, sortPrefix, cont string, limit int) ([]categoryMember, string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", category)
	params.Set("cmtype", "page")
	params.Set("cmnamespace", "0")
	params.Set("cmlimit", strconv.Itoa(limit))
	if cont != "" {
		params.Set("cmcontinue", cont)
	} else if sortPrefix != "" {
		params.Set("cmstartsortkeyprefix", sortPrefix)
	}

	var resp categoryMembersResponse
	if err := c.Get(ctx, category, params, &resp); err != nil {
		return nil, "", err
	}
	if resp.Query == nil {
		return nil, "", c.fail(category, KindParse, false, fmt.Errorf("response has no query block"))
	}
	next := ""
	if resp.Continue != nil {
		next = resp.Continue.CMContinue
	}
	return resp.Query.CategoryMembers, next, nil
}

type parseResponse struct {
	Parse *struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// pageHTML returns the rendered HTML of a page.
func pageHTML(ctx context.Context, c *Client, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "text")
	params.Set("redirects", "1")

	var resp parseResponse
	if err := c.Get(ctx, title, params, &resp); err != nil {
		return "", err
	}
	if resp.Parse == nil {
		return "", c.fail(title, KindParse, false, fmt.Errorf("response has no parse block"))
	}
	return resp.Parse.Text, nil
}

type extractResponse struct {
	Query *struct {
		Pages []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// pageExtract returns the plain-text introduction of a page.
func pageExtract(ctx context.Context, c *Client, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp extractResponse
	if err := c.Get(ctx, title, params, &resp); err != nil {
		return "", err
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return "", c.fail(title, KindParse, false, fmt.Errorf("response has no pages"))
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return "", c.fail(title, KindParse, false, fmt.Errorf("page is missing"))
	}
	return page.Extract, nil
}
