package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flow_drafts (
				id UUID PRIMARY KEY,
				realm_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				flow_type VARCHAR(50) NOT NULL,
				graph JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flow_drafts_realm_id ON flow_drafts(realm_id);
			CREATE INDEX idx_flow_drafts_flow_type ON flow_drafts(flow_type);

			CREATE TABLE flow_versions (
				id UUID PRIMARY KEY,
				draft_id UUID NOT NULL REFERENCES flow_drafts(id) ON DELETE CASCADE,
				realm_id VARCHAR(255) NOT NULL,
				flow_type VARCHAR(50) NOT NULL,
				version_number INT NOT NULL,
				artifact JSONB NOT NULL,
				checksum VARCHAR(64) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (draft_id, version_number)
			);

			CREATE INDEX idx_flow_versions_draft_id ON flow_versions(draft_id);
			CREATE INDEX idx_flow_versions_realm_id ON flow_versions(realm_id);

			CREATE TABLE flow_deployments (
				id UUID PRIMARY KEY,
				realm_id VARCHAR(255) NOT NULL,
				flow_type VARCHAR(50) NOT NULL,
				active_version_id UUID NOT NULL REFERENCES flow_versions(id),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (realm_id, flow_type)
			);

			CREATE TABLE auth_sessions (
				id UUID PRIMARY KEY,
				realm_id VARCHAR(255) NOT NULL,
				flow_version_id UUID NOT NULL REFERENCES flow_versions(id),
				current_node_id VARCHAR(255) NOT NULL,
				context JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'completed', 'failed')),
				user_id VARCHAR(255),
				revision BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_auth_sessions_realm_id ON auth_sessions(realm_id);
			CREATE INDEX idx_auth_sessions_status ON auth_sessions(status);
			CREATE INDEX idx_auth_sessions_expires_at ON auth_sessions(expires_at);

			CREATE TABLE auth_session_actions (
				id UUID PRIMARY KEY,
				session_id UUID NOT NULL REFERENCES auth_sessions(id) ON DELETE CASCADE,
				realm_id VARCHAR(255) NOT NULL,
				action_type VARCHAR(255) NOT NULL,
				token_hash VARCHAR(64) NOT NULL UNIQUE,
				payload JSONB,
				resume_node_id VARCHAR(255) NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				consumed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_auth_session_actions_session_id ON auth_session_actions(session_id);
			CREATE INDEX idx_auth_session_actions_expires_at ON auth_session_actions(expires_at);
		`,
	}
}
