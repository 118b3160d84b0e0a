/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/utils"
)

type leaderForm struct {
	Name    string `form:"name" validate:"required,max=200"`
	Type    string `form:"type" validate:"required,leadertype"`
	Contact string `form:"contact" validate:"omitempty,phone"`
	Address string `form:"address" validate:"max=500"`
}

// Leaders lists schools and dealers, optionally filtered by a search term
// and type. Selecting a leader shows their orders alongside.
func Leaders(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	state := b.leaders(ctx)
	if loadFailed(c, s, b, data, state.Err, "Failed to load leaders") {
		return
	}

	search := strings.TrimSpace(c.Query("q"))
	typeFilter := api.LeaderType(strings.TrimSpace(c.Query("type")))
	leaders := filterLeaders(state.Data, search, typeFilter)

	if selectedID, ok := optionalID(c.Query("id")); ok && selectedID != "" {
		for i := range state.Data {
			if state.Data[i].ID != selectedID {
				continue
			}
			data["SelectedLeader"] = state.Data[i]

			orders := b.leaderOrders(ctx, selectedID)
			if loadFailed(c, s, b, data, orders.Err, "Failed to load leader orders") {
				return
			}
			data["SelectedOrders"] = orders.Data
			break
		}
	}

	data["Leaders"] = leaders
	data["LeaderCount"] = len(state.Data)
	data["Search"] = search
	data["TypeFilter"] = string(typeFilter)
	data["TypeOptions"] = stringOptions([]api.LeaderType{api.LeaderSchool, api.LeaderDealer}, typeFilter)
	data["IsLeaders"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Leaders", URL: "/leaders", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "leaders")
}

// filterLeaders keeps leaders whose name or contact contains search. Phone
// searches also match the same number written another way.
func filterLeaders(leaders []api.Leader, search string, leaderType api.LeaderType) []api.Leader {
	needle := strings.ToLower(search)
	out := make([]api.Leader, 0, len(leaders))
	for _, l := range leaders {
		if leaderType != "" && l.Type != leaderType {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(l.Name), needle) &&
			!strings.Contains(strings.ToLower(l.Contact), needle) &&
			!utils.PhoneMatches(l.Contact, search) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func parseLeaderForm(c flamego.Context, money *currency.Formatter) (api.LeaderInput, string) {
	if err := c.Request().ParseForm(); err != nil {
		return api.LeaderInput{}, "Failed to parse form"
	}
	form := c.Request().Form

	input := leaderForm{
		Name:    strings.TrimSpace(form.Get("name")),
		Type:    strings.TrimSpace(form.Get("type")),
		Contact: strings.TrimSpace(form.Get("contact")),
		Address: strings.TrimSpace(form.Get("address")),
	}
	if input.Type == "" {
		input.Type = string(api.LeaderSchool)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return api.LeaderInput{}, utils.FirstValidationMessage(err)
	}

	opening, err := parseMoney(money, form.Get("opening_balance"))
	if err != nil {
		return api.LeaderInput{}, "Opening balance must be a number"
	}

	contact := input.Contact
	if contact != "" {
		contact = utils.FormatPhone(contact, utils.DefaultRegion)
	}

	return api.LeaderInput{
		Name:           input.Name,
		Type:           api.LeaderType(input.Type),
		Contact:        contact,
		Address:        input.Address,
		OpeningBalance: opening,
	}, ""
}

// CreateLeader adds a school or dealer.
func CreateLeader(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	input, problem := parseLeaderForm(c, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}

	leader, err := b.API.CreateLeader(c.Request().Context(), input)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to create leader", "/leaders")
		return
	}

	b.invalidate(keyLeaders)
	b.invalidate(keyDashboard)
	SetSuccessFlash(s, "Leader created successfully")

	if leader != nil && leader.ID != "" {
		c.Redirect("/leaders?id="+leader.ID, http.StatusSeeOther)
		return
	}
	c.Redirect("/leaders", http.StatusSeeOther)
}

// EditLeaderForm renders the edit page for one leader.
func EditLeaderForm(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}

	state := b.leader(c.Request().Context(), id)
	if state.Err != nil || state.Data == nil {
		if state.Err == nil {
			state.Err = &api.APIError{Status: http.StatusNotFound, Message: "Leader not found"}
		}
		redirectOnAPIError(c, s, b, state.Err, "Failed to load leader", "/leaders")
		return
	}

	data["Leader"] = state.Data
	data["TypeOptions"] = stringOptions([]api.LeaderType{api.LeaderSchool, api.LeaderDealer}, state.Data.Type)
	data["IsLeaders"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Leaders", URL: "/leaders", IsCurrent: false},
		{Name: state.Data.Name, URL: "/leaders?id=" + id, IsCurrent: false},
		{Name: "Edit", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "leader_edit")
}

// UpdateLeader saves changes to a leader.
func UpdateLeader(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}
	back := "/leaders/" + id + "/edit"

	input, problem := parseLeaderForm(c, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if _, err := b.API.UpdateLeader(c.Request().Context(), id, input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to update leader", back)
		return
	}

	b.invalidate(keyLeaders)
	b.invalidate(keyLedger, id)
	SetSuccessFlash(s, "Leader updated successfully")
	c.Redirect("/leaders?id="+id, http.StatusSeeOther)
}

// DeleteLeader removes a leader.
func DeleteLeader(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}

	if err := b.API.DeleteLeader(c.Request().Context(), id); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to delete leader", "/leaders?id="+id)
		return
	}

	b.invalidate(keyLeaders)
	b.invalidateMoney()
	SetSuccessFlash(s, "Leader deleted")
	c.Redirect("/leaders", http.StatusSeeOther)
}

// LeaderVCard downloads a leader as a contact card.
func LeaderVCard(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}

	state := b.leader(c.Request().Context(), id)
	if state.Err != nil || state.Data == nil {
		if state.Err == nil {
			state.Err = &api.APIError{Status: http.StatusNotFound, Message: "Leader not found"}
		}
		redirectOnAPIError(c, s, b, state.Err, "Failed to load leader", "/leaders")
		return
	}

	payload, err := buildLeaderVCard(state.Data)
	if err != nil {
		logger.Error("Error building leader vCard", "leader_id", id, "error", err)
		SetErrorFlash(s, "Failed to build contact card")
		c.Redirect("/leaders?id="+id, http.StatusSeeOther)
		return
	}

	writeAttachment(c, "text/vcard; charset=utf-8", vcardFilename(state.Data.Name), payload)
}

func buildLeaderVCard(leader *api.Leader) ([]byte, error) {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldUID, leader.ID)
	card.SetValue(vcard.FieldFormattedName, leader.Name)
	card.AddName(&vcard.Name{FamilyName: leader.Name})
	card.SetValue(vcard.FieldOrganization, leader.Name)
	card.SetValue(vcard.FieldCategories, string(leader.Type))

	if contact := strings.TrimSpace(leader.Contact); contact != "" {
		value := contact
		if e164, err := utils.E164(contact, utils.DefaultRegion); err == nil {
			value = e164
		}
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  value,
			Params: vcard.Params{vcard.ParamType: []string{"work"}},
		})
	}

	if address := strings.TrimSpace(leader.Address); address != "" {
		card.AddAddress(&vcard.Address{
			Field:         &vcard.Field{Params: vcard.Params{vcard.ParamType: []string{"work"}}},
			StreetAddress: address,
		})
	}

	if !leader.OpeningBalance.Equal(decimal.Zero) {
		card.SetValue(vcard.FieldNote, "Opening balance: "+leader.OpeningBalance.StringFixed(currency.Places))
	}

	vcard.ToV4(card)

	var buffer bytes.Buffer
	if err := vcard.NewEncoder(&buffer).Encode(card); err != nil {
		return nil, fmt.Errorf("failed to encode vcard: %w", err)
	}
	return buffer.Bytes(), nil
}

func vcardFilename(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "leader"
	}
	return slug + ".vcf"
}

// ExportLeaderPayments proxies the backend's CSV export of a leader's
// payments.
func ExportLeaderPayments(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/leaders", http.StatusSeeOther)
		return
	}

	dl, err := b.API.ExportLeaderPayments(c.Request().Context(), id)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to export payments", "/ledger?leader="+id)
		return
	}
	serveDownload(c, dl)
}
