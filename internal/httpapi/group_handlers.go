package httpapi

import "net/http"

func (a *API) createGroup(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := a.campus.CreateGroup(r.Context(), token, req.CourseCode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupView(g))
}

func (a *API) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.campus.ListGroups(r.Context(), r.URL.Query().Get("course_code"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": toGroupViews(groups)})
}

func (a *API) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := a.campus.GetGroup(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupView(g))
}

func (a *API) setAccepting(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	var req acceptingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := a.campus.SetAccepting(r.Context(), token, id, *req.AcceptingMembers)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupView(g))
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	req, err := a.campus.CreateRequest(r.Context(), token, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestView(req))
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	reqs, err := a.campus.ListRequests(r.Context(), token, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestView(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func (a *API) resolveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	var body resolveRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.campus.ResolveRequest(r.Context(), token, id, *body.Response)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	req, err := a.campus.GetRequest(r.Context(), token, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(req))
}
