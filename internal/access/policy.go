package access

// Effect is a single policy's verdict.
type Effect int

const (
	Abstain Effect = iota
	Permit
	Forbid
)

// Policy inspects one signal of a resource.
type Policy[R any] func(a Actor, r R) (Effect, Reason)

func evaluate[R any](action Action, a Actor, r R, policies ...Policy[R]) Decision {
	for _, p := range policies {
		switch effect, reason := p(a, r); effect {
		case Permit:
			return Allow(action, reason)
		case Forbid:
			return Deny(action, reason)
		}
	}
	return Deny(action, ReasonNoPolicy)
}

func publicPolicy[R sharable](_ Actor, r R) (Effect, Reason) {
	if r.public() {
		return Permit, ReasonPublic
	}
	return Abstain, ""
}

func requireAuthenticated[R any](a Actor, _ R) (Effect, Reason) {
	if a.IsAnonymous() {
		return Forbid, ReasonAnonymous
	}
	return Abstain, ""
}

func ownerPolicy[R sharable](a Actor, r R) (Effect, Reason) {
	if !a.IsAnonymous() && a.UserID == r.owner() {
		return Permit, ReasonOwner
	}
	return Abstain, ""
}

func grantPolicy[R sharable](a Actor, r R) (Effect, Reason) {
	if grantedTo(r, a.UserID) {
		return Permit, ReasonGrant
	}
	return Abstain, ""
}

func publicDropPolicy(_ Actor, f FolderResource) (Effect, Reason) {
	if f.dropOpen() {
		return Permit, ReasonPublicDrop
	}
	return Abstain, ""
}

func fileFolderOwnerPolicy(a Actor, f FileResource) (Effect, Reason) {
	return ownerPolicy(a, f.Folder)
}

func uploaderPolicy(a Actor, f FileResource) (Effect, Reason) {
	if !a.IsAnonymous() && f.UploaderID != nil && *f.UploaderID == a.UserID {
		return Permit, ReasonUploader
	}
	return Abstain, ""
}

func granteeKnownPolicy(_ Actor, g GrantRequest) (Effect, Reason) {
	if g.GranteeID == 0 {
		return Forbid, ReasonGranteeUnknown
	}
	return Abstain, ""
}

func notSelfPolicy(a Actor, g GrantRequest) (Effect, Reason) {
	if g.GranteeID == a.UserID {
		return Forbid, ReasonSelfShare
	}
	return Abstain, ""
}

func notDuplicatePolicy(_ Actor, g GrantRequest) (Effect, Reason) {
	if g.AlreadyShared {
		return Forbid, ReasonAlreadyShared
	}
	return Abstain, ""
}

func grantablePolicy(_ Actor, _ GrantRequest) (Effect, Reason) {
	return Permit, ReasonGrantable
}
